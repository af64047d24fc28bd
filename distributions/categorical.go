// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributions

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
)

// Categorical distribution over NumClasses classes, with samples represented
// as one-hot vectors of size NumClasses.
//
// Its single parameter "probs" is the per-class probability vector, produced
// by a softmax head.
type Categorical struct {
	NumClasses int
}

// ParamProbs is the name of the Categorical (and Bernoulli) probabilities parameter.
const ParamProbs = "probs"

// NewCategorical returns a Categorical distribution over numClasses classes.
func NewCategorical(numClasses int) Categorical {
	if numClasses < 2 {
		Panicf("Categorical requires at least 2 classes, got %d", numClasses)
	}
	return Categorical{NumClasses: numClasses}
}

// ParamInfo implements Distribution.
func (c Categorical) ParamInfo() []ParamSpec {
	return []ParamSpec{{Name: ParamProbs, Dim: c.NumClasses, Activation: ActivationSoftmax}}
}

// SampleSize implements Distribution.
func (c Categorical) SampleSize() int { return c.NumClasses }

// Sample implements Distribution. It draws one-hot samples with the Gumbel-max
// trick: argmax(log(p) + Gumbel noise) is distributed according to p.
func (c Categorical) Sample(ctx *context.Context, params map[string]*Node) *Node {
	probs := getParam(params, ParamProbs)
	g := probs.Graph()
	dtype := probs.DType()
	epsilon := Scalar(g, dtype, Epsilon(dtype))
	uniform := ctx.RandomUniform(g, probs.Shape())
	gumbel := Neg(Log(Neg(Log(Add(uniform, epsilon)))))
	choice := ArgMax(Add(Log(Add(probs, epsilon)), gumbel), -1)
	return OneHot(choice, c.NumClasses, dtype)
}

// NLL implements Distribution: the cross-entropy of the one-hot samples under
// the predicted class probabilities.
func (c Categorical) NLL(samples *Node, params map[string]*Node) *Node {
	probs := getParam(params, ParamProbs)
	g := probs.Graph()
	epsilon := Scalar(g, probs.DType(), Epsilon(probs.DType()))
	return Neg(ReduceSum(Mul(samples, Log(Add(probs, epsilon))), -1))
}

// assert Categorical is a Distribution.
var _ Distribution = Categorical{}

// Epsilon is the small constant added inside logarithms to keep losses finite,
// chosen per dtype like the framework's losses package does.
func Epsilon(dtype dtypes.DType) float64 {
	switch dtype {
	case dtypes.Float64:
		return 1e-8
	case dtypes.Float16, dtypes.BFloat16:
		return 1e-4
	default:
		return 1e-7
	}
}
