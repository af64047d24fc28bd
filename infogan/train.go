// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package infogan

import (
	"math"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// TrainOnBatch runs one discriminator training step followed by one generator
// training step, in that strict order, and returns the named loss values of
// both: "d_generated", "d_real", "d_mi_<dist>" per meaningful distribution
// and "d_supervised" when configured, then "g_adversarial" and "g_mi_<dist>".
//
// samples is one real batch shaped [batch, imageShape...]. labels are the
// ground-truth values for the supervised distribution, shaped
// [batch, sampleSize]; a row of all zeros marks that example as unlabeled.
// Pass nil to train fully unsupervised on this batch (ignored when no
// supervised distribution is configured).
//
// The call blocks until both weight updates complete. It panics on shape
// mismatches and backend failures.
func (m *InfoGAN) TrainOnBatch(samples *tensors.Tensor, labels *tensors.Tensor) map[string]float64 {
	args := make([]any, 0, 2+len(m.priorSpec))
	args = append(args, samples)
	if m.config.SupervisedDistName != "" {
		if labels == nil {
			labels = m.zeroLabels()
		}
		args = append(args, labels)
	}
	args = append(args, m.priorFeeds()...)

	discOuts := m.trainDiscExec.MustExec(args...)
	genOuts := m.trainGenExec.MustExec(m.priorFeeds()...)

	result := make(map[string]float64, len(discOuts)+len(genOuts))
	for i, name := range m.discLossNames {
		result[name] = tensors.ToScalar[float64](discOuts[i])
	}
	for i, name := range m.genLossNames {
		result[name] = tensors.ToScalar[float64](genOuts[i])
	}
	return result
}

// Generate samples one batch of images from the current prior, shaped
// [batch, imageShape...].
func (m *InfoGAN) Generate() *tensors.Tensor {
	return m.genExec.MustExec(m.priorFeeds()...)[0]
}

// Encode predicts the posterior parameters of every meaningful distribution
// for a batch of samples. Each returned tensor is the distribution's merged
// parameter tensor, shaped [batch, totalParamsDim], keyed by distribution
// name; split it with distributions.SplitParams.
func (m *InfoGAN) Encode(samples *tensors.Tensor) map[string]*tensors.Tensor {
	outputs := m.encExec.MustExec(samples)
	result := make(map[string]*tensors.Tensor, len(outputs))
	for i, nd := range m.config.MeaningfulDists {
		result[nd.Name] = outputs[i]
	}
	return result
}

// Discriminate returns the discriminator's probability that each sample is
// real, shaped [batch, 1].
func (m *InfoGAN) Discriminate(samples *tensors.Tensor) *tensors.Tensor {
	return m.discExec.MustExec(samples)[0]
}

// SanityCheck verifies that the weight sharing across graphs is consistent:
// the discriminator score computed inside a combined generate-and-discriminate
// graph must match the standalone discriminator's score on the same generated
// batch (within a small tolerance, the two graphs may compile to different
// operation orders), and two independently compiled standalone discriminator
// graphs must agree exactly. Returns nil when consistent.
func (m *InfoGAN) SanityCheck() error {
	combined := context.MustNewExec(m.backend, m.ctx,
		func(ctx *context.Context, priorInputs []*Node) []*Node {
			generated, _ := m.generatedSample(ctx, priorInputs)
			return []*Node{m.discriminatePath(ctx, generated), generated}
		})
	outs := combined.MustExec(m.priorFeeds()...)
	combinedScore, generated := outs[0], outs[1]

	standaloneScore := m.Discriminate(generated)
	if err := compareScores("combined vs standalone discriminator", combinedScore, standaloneScore, 1e-2); err != nil {
		return err
	}

	recompiled := context.MustNewExec(m.backend, m.ctx,
		func(ctx *context.Context, samples *Node) *Node {
			return m.discriminatePath(ctx, samples)
		})
	recompiledScore := recompiled.MustExec(generated)[0]
	return compareScores("recompiled discriminator", standaloneScore, recompiledScore, 0)
}

// compareScores checks two equally shaped score tensors agree elementwise
// within atol.
func compareScores(what string, a, b *tensors.Tensor, atol float64) error {
	av, bv := flatFloat64(a), flatFloat64(b)
	if len(av) != len(bv) {
		return errors.Errorf("%s: shapes differ, %s vs %s", what, a.Shape(), b.Shape())
	}
	for i := range av {
		if math.Abs(av[i]-bv[i]) > atol {
			return errors.Errorf("%s: scores diverge at element %d: %g vs %g (atol=%g)",
				what, i, av[i], bv[i], atol)
		}
	}
	return nil
}

// flatFloat64 copies a float tensor's values into a []float64.
func flatFloat64(t *tensors.Tensor) []float64 {
	var out []float64
	switch t.DType() {
	case dtypes.Float64:
		tensors.MustConstFlatData(t, func(flat []float64) {
			out = append(out, flat...)
		})
	case dtypes.Float32:
		tensors.MustConstFlatData(t, func(flat []float32) {
			out = make([]float64, len(flat))
			for i, v := range flat {
				out[i] = float64(v)
			}
		})
	default:
		Panicf("flatFloat64: unsupported dtype %s", t.DType())
	}
	return out
}
