// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package distributions implements the parametric distributions used by InfoGAN:
// the latent priors sampled to drive generation, the output (image) distribution
// sampled after the generator, and the posteriors predicted by the encoder.
//
// A Distribution is defined by its parameters -- each with a dimension and the
// output activation that maps a dense layer's output into the parameter's valid
// range -- and must know how to draw samples from given parameter values and how
// to score samples with a per-example negative log-likelihood.
//
// Parameter order is part of the contract: ParamInfo returns a slice and every
// consumer (latent sampler, posterior heads, losses) relies on that order when
// concatenating or slicing merged parameter tensors.
package distributions

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// Activation maps a dense head's linear output into a parameter's valid range.
type Activation int

const (
	// ActivationLinear leaves the value unconstrained (e.g. a Gaussian mean).
	ActivationLinear Activation = iota

	// ActivationSoftmax normalizes the last axis into a probability vector.
	ActivationSoftmax

	// ActivationSigmoid constrains each value to (0, 1).
	ActivationSigmoid

	// ActivationSoftplus constrains each value to (0, +inf) (e.g. a standard deviation).
	ActivationSoftplus
)

// String implements fmt.Stringer.
func (a Activation) String() string {
	switch a {
	case ActivationLinear:
		return "linear"
	case ActivationSoftmax:
		return "softmax"
	case ActivationSigmoid:
		return "sigmoid"
	case ActivationSoftplus:
		return "softplus"
	}
	return "invalid"
}

// Apply the activation to x.
func (a Activation) Apply(x *Node) *Node {
	switch a {
	case ActivationLinear:
		return x
	case ActivationSoftmax:
		return Softmax(x)
	case ActivationSigmoid:
		return Sigmoid(x)
	case ActivationSoftplus:
		return Softplus(x)
	default:
		Panicf("invalid distributions.Activation value %d", a)
	}
	return nil
}

// ParamSpec describes one parameter of a Distribution: its name, its
// dimensionality per example and the activation that produces it.
type ParamSpec struct {
	Name       string
	Dim        int
	Activation Activation
}

// Distribution is a parametric distribution over fixed-size sample vectors.
//
// All graph-building methods panic (with the graph package's exceptions) on
// invalid parameters or shapes: those are programmer errors.
type Distribution interface {
	// ParamInfo returns the parameters of the distribution, in their declared
	// order. The order is fixed and meaningful: merged parameter tensors are
	// concatenations of the parameters in this order.
	ParamInfo() []ParamSpec

	// SampleSize is the dimension of one sample vector.
	SampleSize() int

	// Sample builds the graph that draws one sample per row of the given
	// parameters, shaped [batch, SampleSize()]. Sampling is reparameterized
	// (differentiable w.r.t. the parameters) where the distribution allows it.
	//
	// The ctx is used for the random number generator state only.
	Sample(ctx *context.Context, params map[string]*Node) *Node

	// NLL returns the negative log-likelihood of samples (shape
	// [batch, SampleSize()]) under the given parameters, one value per example,
	// shaped [batch].
	NLL(samples *Node, params map[string]*Node) *Node
}

// TotalParamsDim is the sum of the parameter dimensions of the distribution,
// the width of its merged parameter tensor.
func TotalParamsDim(dist Distribution) int {
	total := 0
	for _, spec := range dist.ParamInfo() {
		total += spec.Dim
	}
	return total
}

// SplitParams slices a merged parameter tensor (shape [batch, TotalParamsDim])
// back into the named per-parameter tensors, following the declared order.
// It is the inverse of concatenating the parameters in ParamInfo order.
func SplitParams(dist Distribution, merged *Node) map[string]*Node {
	specs := dist.ParamInfo()
	params := make(map[string]*Node, len(specs))
	start := 0
	for _, spec := range specs {
		params[spec.Name] = SliceAxis(merged, -1, AxisRange(start, start+spec.Dim))
		start += spec.Dim
	}
	if got := merged.Shape().Dimensions[merged.Rank()-1]; got != start {
		Panicf("merged parameters tensor has width %d, distribution declares %d", got, start)
	}
	return params
}

// getParam fetches a named parameter from the map, panicking with a clear
// message if the caller didn't provide it.
func getParam(params map[string]*Node, name string) *Node {
	p, found := params[name]
	if !found {
		Panicf("distribution parameter %q missing from params map", name)
	}
	return p
}
