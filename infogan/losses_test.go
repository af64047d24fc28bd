// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package infogan

import (
	"math"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/infogan/distributions"
)

func execLoss(t *testing.T, graphFn func(inputs []*Node) *Node, args ...any) float64 {
	t.Helper()
	backend := graphtest.BuildTestBackend()
	result, err := ExecOnce(backend, func(inputs []*Node) *Node {
		return ConvertDType(graphFn(inputs), dtypes.Float64)
	}, args...)
	require.NoError(t, err)
	return tensors.ToScalar[float64](result)
}

func TestDiscriminatorRealLoss(t *testing.T) {
	probs := [][]float32{{0.5}, {0.8}}
	got := execLoss(t, func(inputs []*Node) *Node {
		return discRealLoss(inputs[0])
	}, probs)
	want := (-math.Log(0.5)/2 - math.Log(0.8)/2) / 2
	assert.InDelta(t, want, got, 1e-4)
}

func TestDiscriminatorGeneratedLoss(t *testing.T) {
	probs := [][]float32{{0.5}, {0.2}}
	got := execLoss(t, func(inputs []*Node) *Node {
		return discGeneratedLoss(inputs[0])
	}, probs)
	want := (-math.Log(1-0.5)/2 - math.Log(1-0.2)/2) / 2
	assert.InDelta(t, want, got, 1e-4)
}

func TestGeneratorAdversarialLoss(t *testing.T) {
	probs := [][]float32{{0.5}, {0.9}}
	got := execLoss(t, func(inputs []*Node) *Node {
		return generatorAdversarialLoss(inputs[0])
	}, probs)
	want := (-math.Log(0.5) - math.Log(0.9)) / 2
	assert.InDelta(t, want, got, 1e-4)

	// A perfect fool (p=1) drives the loss to (nearly) zero; a perfectly
	// detected fake saturates but stays finite thanks to the epsilon.
	perfect := execLoss(t, func(inputs []*Node) *Node {
		return generatorAdversarialLoss(inputs[0])
	}, [][]float32{{1}})
	assert.InDelta(t, 0, perfect, 1e-4)
	detected := execLoss(t, func(inputs []*Node) *Node {
		return generatorAdversarialLoss(inputs[0])
	}, [][]float32{{0}})
	assert.False(t, math.IsInf(detected, 0) || math.IsNaN(detected))
}

func TestMutualInfoLossMonotonicity(t *testing.T) {
	gaussian := distributions.NewIsotropicGaussian(2)
	samples := [][]float32{{0.5, -1}, {2, 0}}
	// Merged posterior [mean, std]: a posterior centered exactly on the
	// samples scores better than one shifted away from them.
	centered := [][]float32{{0.5, -1, 1, 1}, {2, 0, 1, 1}}
	shifted := [][]float32{{1.5, 0, 1, 1}, {3, 1, 1, 1}}
	lossFn := func(inputs []*Node) *Node {
		return mutualInfoLoss(gaussian, inputs[0], inputs[1])
	}
	atSamples := execLoss(t, lossFn, samples, centered)
	perturbed := execLoss(t, lossFn, samples, shifted)
	assert.LessOrEqual(t, atSamples, perturbed)
}

func TestSupervisedLossAllZeroLabelsIsZero(t *testing.T) {
	categorical := distributions.NewCategorical(3)
	labels := [][]float32{{0, 0, 0}, {0, 0, 0}}
	posterior := [][]float32{{0.1, 0.2, 0.7}, {0.9, 0.05, 0.05}}
	got := execLoss(t, func(inputs []*Node) *Node {
		return supervisedLoss(categorical, inputs[0], inputs[1])
	}, labels, posterior)
	assert.Zero(t, got)
}

func TestSupervisedLossMasksUnlabeledRows(t *testing.T) {
	categorical := distributions.NewCategorical(3)
	// First row labeled (class 2), second row unlabeled.
	labels := [][]float32{{0, 0, 1}, {0, 0, 0}}
	posterior := [][]float32{{0.1, 0.2, 0.7}, {0.9, 0.05, 0.05}}
	got := execLoss(t, func(inputs []*Node) *Node {
		return supervisedLoss(categorical, inputs[0], inputs[1])
	}, labels, posterior)
	// The unlabeled row contributes zero but still counts in the mean.
	want := -math.Log(0.7) / 2
	assert.InDelta(t, want, got, 1e-4)
}
