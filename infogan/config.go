// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package infogan assembles a generator, a shared trunk, a discriminator head
// and an encoder head into the InfoGAN model from "InfoGAN: Interpretable
// Representation Learning by Information Maximizing Generative Adversarial
// Nets" (Chen et al., 2016).
//
// The model co-trains the networks with three objectives: the usual adversarial
// game between generator and discriminator, a mutual-information term that
// forces the encoder to recover the "meaningful" latent codes from generated
// samples, and an optional supervised term that matches the encoder's
// predictions against ground-truth labels on real samples.
//
// The assembly compiles five computation graphs over one shared variable
// context: three standalone inference graphs (generate, encode, discriminate)
// and two training graphs (discriminator step, generator step), each with its
// own loss composition, optimizer and set of frozen weight groups. Weight
// groups are context scopes; each training graph re-asserts its own freeze
// pattern while its graph is built, immediately before the optimizer update is
// attached, so a graph can never be compiled under another graph's pattern.
package infogan

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/core/dtypes"

	"github.com/gomlx/infogan/distributions"
)

// NamedDist pairs a distribution with the name under which latent samples,
// posterior outputs and losses are reported. Configurations use slices of
// NamedDist instead of maps so that the declaration order -- which fixes the
// order of prior-parameter feeds and of generator inputs -- is explicit.
type NamedDist struct {
	Name string
	Dist distributions.Distribution
}

// PriorParams is the numeric prior-parameter bank: distribution name ->
// parameter name -> tensor shaped [batch, paramDim]. It is owned by the caller
// and read (never written) by the model at each training/generation step.
type PriorParams map[string]map[string]*tensors.Tensor

// Network is a parametric graph function. Apply builds the network's forward
// pass; its variables live under the Name scope of the model's context, which
// is also the network's weight group for freezing.
type Network struct {
	Name  string
	Apply func(ctx *context.Context, x *Node) *Node
}

// Config parameterizes New. All fields except SupervisedDistName and DType are
// required.
type Config struct {
	// BatchSize of real samples per training step. Prior parameter tensors
	// must have this leading dimension.
	BatchSize int

	// ImageShape of one sample, e.g. [28, 28, 1] (height, width, channels).
	ImageShape []int

	// NoiseDists are latent inputs with no mutual-information objective.
	NoiseDists []NamedDist

	// MeaningfulDists are the latent codes the encoder must recover.
	MeaningfulDists []NamedDist

	// ImageDist is the output distribution sampled after the generator. It
	// must have exactly one parameter; its activation is applied to the
	// generator network's output.
	ImageDist distributions.Distribution

	// Prior supplies the numeric parameter values for every distribution in
	// NoiseDists and MeaningfulDists.
	Prior PriorParams

	// SupervisedDistName, if non-empty, names the meaningful distribution
	// whose posterior is additionally trained against ground-truth labels on
	// the real-data path.
	SupervisedDistName string

	// The four networks. Their Name fields double as weight-group scopes and
	// must be distinct.
	Generator        Network
	SharedTrunk      Network
	DiscriminatorTop Network
	EncoderTop       Network

	// DType of the model. Defaults to Float32.
	DType dtypes.DType
}

// scopePosteriors holds the per-distribution posterior output heads.
const scopePosteriors = "posteriors"

// validate panics on any construction-time precondition failure.
func (cfg *Config) validate() {
	if cfg.BatchSize <= 0 {
		Panicf("infogan: BatchSize must be positive, got %d", cfg.BatchSize)
	}
	if len(cfg.ImageShape) == 0 {
		Panicf("infogan: ImageShape must not be empty")
	}
	for _, dim := range cfg.ImageShape {
		if dim <= 0 {
			Panicf("infogan: ImageShape dimensions must be positive, got %v", cfg.ImageShape)
		}
	}
	if len(cfg.NoiseDists)+len(cfg.MeaningfulDists) == 0 {
		Panicf("infogan: at least one noise or meaningful distribution is required")
	}
	if cfg.ImageDist == nil {
		Panicf("infogan: ImageDist is required")
	}
	if len(cfg.ImageDist.ParamInfo()) != 1 {
		Panicf("infogan: ImageDist must have exactly one parameter, got %d",
			len(cfg.ImageDist.ParamInfo()))
	}
	if cfg.SupervisedDistName != "" && cfg.findMeaningful(cfg.SupervisedDistName) == nil {
		Panicf("infogan: SupervisedDistName %q is not one of the meaningful distributions",
			cfg.SupervisedDistName)
	}
	seen := make(map[string]bool)
	for _, nd := range cfg.allDists() {
		if nd.Name == "" || nd.Dist == nil {
			Panicf("infogan: every distribution needs a name and an implementation")
		}
		if seen[nd.Name] {
			Panicf("infogan: duplicate distribution name %q", nd.Name)
		}
		seen[nd.Name] = true
	}
	for _, net := range []Network{cfg.Generator, cfg.SharedTrunk, cfg.DiscriminatorTop, cfg.EncoderTop} {
		if net.Name == "" || net.Apply == nil {
			Panicf("infogan: Generator, SharedTrunk, DiscriminatorTop and EncoderTop networks are all required")
		}
	}
	cfg.validatePrior()
}

// validatePrior checks the prior bank covers every distribution parameter with
// a [BatchSize, dim] tensor.
func (cfg *Config) validatePrior() {
	for _, nd := range cfg.allDists() {
		distParams, found := cfg.Prior[nd.Name]
		if !found {
			Panicf("infogan: prior parameters missing for distribution %q", nd.Name)
		}
		for _, spec := range nd.Dist.ParamInfo() {
			t, found := distParams[spec.Name]
			if !found {
				Panicf("infogan: prior parameter %q missing for distribution %q", spec.Name, nd.Name)
			}
			dims := t.Shape().Dimensions
			if len(dims) != 2 || dims[0] != cfg.BatchSize || dims[1] != spec.Dim {
				Panicf("infogan: prior parameter %s/%s must be shaped [%d, %d], got %s",
					nd.Name, spec.Name, cfg.BatchSize, spec.Dim, t.Shape())
			}
		}
	}
}

// allDists returns noise distributions followed by meaningful distributions,
// the canonical ordering used for prior inputs and generator latents.
func (cfg *Config) allDists() []NamedDist {
	all := make([]NamedDist, 0, len(cfg.NoiseDists)+len(cfg.MeaningfulDists))
	all = append(all, cfg.NoiseDists...)
	all = append(all, cfg.MeaningfulDists...)
	return all
}

func (cfg *Config) findMeaningful(name string) distributions.Distribution {
	for _, nd := range cfg.MeaningfulDists {
		if nd.Name == name {
			return nd.Dist
		}
	}
	return nil
}

func (cfg *Config) dtype() dtypes.DType {
	if cfg.DType == dtypes.InvalidDType {
		return dtypes.Float32
	}
	return cfg.DType
}
