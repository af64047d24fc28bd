// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributions

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// Bernoulli is an elementwise Bernoulli distribution with a single parameter
// "probs" (sigmoid head). Dim is the number of independent bits per example;
// it is typically the flattened image size when Bernoulli is used as the
// output (image) distribution, in which case sampling and NLL operate on the
// generator's full output tensor.
type Bernoulli struct {
	Dim int
}

// NewBernoulli returns a Bernoulli distribution over dim independent bits.
func NewBernoulli(dim int) Bernoulli {
	return Bernoulli{Dim: dim}
}

// ParamInfo implements Distribution.
func (b Bernoulli) ParamInfo() []ParamSpec {
	return []ParamSpec{{Name: ParamProbs, Dim: b.Dim, Activation: ActivationSigmoid}}
}

// SampleSize implements Distribution.
func (b Bernoulli) SampleSize() int { return b.Dim }

// Sample implements Distribution: each bit is 1 where an independent uniform
// draw falls below its probability.
//
// The hard threshold has no gradient, so the sample uses the straight-through
// estimator: forward value is binary, backward the gradient of the
// probabilities. This keeps the generator trainable through sampled images.
func (b Bernoulli) Sample(ctx *context.Context, params map[string]*Node) *Node {
	probs := getParam(params, ParamProbs)
	uniform := ctx.RandomUniform(probs.Graph(), probs.Shape())
	bits := ConvertDType(LessThan(uniform, probs), probs.DType())
	return Add(probs, StopGradient(Sub(bits, probs)))
}

// NLL implements Distribution: the binary cross-entropy, summed over the
// sample dimensions, one value per example.
func (b Bernoulli) NLL(samples *Node, params map[string]*Node) *Node {
	probs := getParam(params, ParamProbs)
	g := probs.Graph()
	epsilon := Scalar(g, probs.DType(), Epsilon(probs.DType()))
	perBit := Add(
		Mul(samples, Log(Add(probs, epsilon))),
		Mul(OneMinus(samples), Log(Add(OneMinus(probs), epsilon))))
	if perBit.Rank() > 2 {
		// Image-shaped tensors: reduce all but the batch axis.
		batchSize := perBit.Shape().Dimensions[0]
		perBit = Reshape(perBit, batchSize, -1)
	}
	return Neg(ReduceSum(perBit, -1))
}

var _ Distribution = Bernoulli{}
