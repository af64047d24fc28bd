// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributions

import (
	"math"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// Names of the IsotropicGaussian parameters.
const (
	ParamMean = "mean"
	ParamStd  = "std"
)

// IsotropicGaussian is a Dim-dimensional Gaussian with diagonal covariance:
// parameters "mean" (unconstrained) and "std" (positive, softplus head), each
// of dimension Dim.
type IsotropicGaussian struct {
	Dim int
}

// NewIsotropicGaussian returns an IsotropicGaussian of the given dimension.
func NewIsotropicGaussian(dim int) IsotropicGaussian {
	if dim < 1 {
		Panicf("IsotropicGaussian requires dim >= 1, got %d", dim)
	}
	return IsotropicGaussian{Dim: dim}
}

// ParamInfo implements Distribution. Mean first, std second: merged parameter
// tensors are [mean, std] concatenated along the last axis.
func (i IsotropicGaussian) ParamInfo() []ParamSpec {
	return []ParamSpec{
		{Name: ParamMean, Dim: i.Dim, Activation: ActivationLinear},
		{Name: ParamStd, Dim: i.Dim, Activation: ActivationSoftplus},
	}
}

// SampleSize implements Distribution.
func (i IsotropicGaussian) SampleSize() int { return i.Dim }

// Sample implements Distribution with the usual reparameterization
// mean + std * eps, eps ~ N(0, I).
func (i IsotropicGaussian) Sample(ctx *context.Context, params map[string]*Node) *Node {
	mean := getParam(params, ParamMean)
	std := getParam(params, ParamStd)
	eps := ctx.RandomNormal(mean.Graph(), mean.Shape())
	return Add(mean, Mul(std, eps))
}

// NLL implements Distribution.
func (i IsotropicGaussian) NLL(samples *Node, params map[string]*Node) *Node {
	mean := getParam(params, ParamMean)
	std := getParam(params, ParamStd)
	g := mean.Graph()
	dtype := mean.DType()
	epsilon := Scalar(g, dtype, Epsilon(dtype))
	std = Add(std, epsilon) // guards the log and the division below.
	normalized := Div(Sub(samples, mean), std)
	perDim := Add(
		AddScalar(MulScalar(Log(std), 2), math.Log(2*math.Pi)),
		Square(normalized))
	return MulScalar(ReduceSum(perDim, -1), 0.5)
}

var _ Distribution = IsotropicGaussian{}
