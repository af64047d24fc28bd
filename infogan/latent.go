// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package infogan

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// priorEntry identifies one prior-parameter input slot. The slice of entries
// fixes the calling convention of every graph that consumes prior parameters:
// the i-th prior input is the tensor for priorSpec[i].
type priorEntry struct {
	distName  string
	paramName string
	dim       int
}

// buildPriorSpec enumerates prior inputs in canonical order: noise
// distributions before meaningful ones, each distribution's parameters in
// ParamInfo order.
func buildPriorSpec(cfg *Config) []priorEntry {
	var spec []priorEntry
	for _, nd := range cfg.allDists() {
		for _, p := range nd.Dist.ParamInfo() {
			spec = append(spec, priorEntry{distName: nd.Name, paramName: p.Name, dim: p.Dim})
		}
	}
	return spec
}

// priorFeeds flattens the prior bank into the positional tensor list matching
// priorSpec.
func (m *InfoGAN) priorFeeds() []any {
	feeds := make([]any, 0, len(m.priorSpec))
	for _, entry := range m.priorSpec {
		feeds = append(feeds, m.prior[entry.distName][entry.paramName])
	}
	return feeds
}

// SetPrior replaces the prior-parameter bank. Shapes must match the original
// configuration; the next executed step picks up the new values.
func (m *InfoGAN) SetPrior(prior PriorParams) {
	for _, entry := range m.priorSpec {
		distParams, found := prior[entry.distName]
		if !found {
			Panicf("infogan: prior parameters missing for distribution %q", entry.distName)
		}
		t, found := distParams[entry.paramName]
		if !found {
			Panicf("infogan: prior parameter %q missing for distribution %q",
				entry.paramName, entry.distName)
		}
		dims := t.Shape().Dimensions
		if len(dims) != 2 || dims[0] != m.batchSize || dims[1] != entry.dim {
			Panicf("infogan: prior parameter %s/%s must be shaped [%d, %d], got %s",
				entry.distName, entry.paramName, m.batchSize, entry.dim, t.Shape())
		}
	}
	m.prior = prior
}

// latentSamples holds the sampled latent vector fed to the generator, plus the
// per-distribution samples of the meaningful codes, which the
// mutual-information loss uses as targets.
type latentSamples struct {
	// vector is the concatenation of all distribution samples along the
	// feature axis, shaped [batch, totalSampleDim].
	vector *Node

	// meaningful maps each meaningful distribution name to its sample.
	meaningful map[string]*Node
}

// sampleLatents draws one sample from every latent distribution given the
// positional prior-parameter inputs (in priorSpec order), and concatenates the
// samples into the generator input. A distribution with a single parameter
// receives it directly; multi-parameter distributions receive them keyed by
// name.
func (m *InfoGAN) sampleLatents(ctx *context.Context, priorInputs []*Node) *latentSamples {
	if len(priorInputs) != len(m.priorSpec) {
		Panicf("infogan: expected %d prior inputs, got %d", len(m.priorSpec), len(priorInputs))
	}
	ls := &latentSamples{meaningful: make(map[string]*Node)}
	meaningfulNames := make(map[string]bool, len(m.config.MeaningfulDists))
	for _, nd := range m.config.MeaningfulDists {
		meaningfulNames[nd.Name] = true
	}
	pos := 0
	var parts []*Node
	for _, nd := range m.config.allDists() {
		params := make(map[string]*Node)
		for _, p := range nd.Dist.ParamInfo() {
			params[p.Name] = priorInputs[pos]
			pos++
		}
		sample := nd.Dist.Sample(ctx, params)
		parts = append(parts, sample)
		if meaningfulNames[nd.Name] {
			ls.meaningful[nd.Name] = sample
		}
	}
	if len(parts) == 1 {
		ls.vector = parts[0]
	} else {
		ls.vector = Concatenate(parts, -1)
	}
	return ls
}

// zeroLabels returns an all-zero label tensor for the supervised distribution,
// used when TrainOnBatch is called without labels. An all-zero row marks the
// sample as unlabeled, so feeding zeros disables the supervised term entirely.
func (m *InfoGAN) zeroLabels() *tensors.Tensor {
	dist := m.config.findMeaningful(m.config.SupervisedDistName)
	return tensors.FromShape(shapes.Make(m.dtype, m.batchSize, dist.SampleSize()))
}

