// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributions_test

import (
	"math"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/infogan/distributions"
)

func TestParamInfoAndTotalDim(t *testing.T) {
	gaussian := distributions.NewIsotropicGaussian(3)
	info := gaussian.ParamInfo()
	require.Len(t, info, 2)
	assert.Equal(t, distributions.ParamMean, info[0].Name)
	assert.Equal(t, distributions.ParamStd, info[1].Name)
	assert.Equal(t, 6, distributions.TotalParamsDim(gaussian))
	assert.Equal(t, 3, gaussian.SampleSize())

	categorical := distributions.NewCategorical(10)
	require.Len(t, categorical.ParamInfo(), 1)
	assert.Equal(t, 10, distributions.TotalParamsDim(categorical))
	assert.Equal(t, 10, categorical.SampleSize())
}

func TestNewCategoricalValidation(t *testing.T) {
	require.Panics(t, func() { distributions.NewCategorical(1) })
}

func TestSplitParamsRoundTrip(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	gaussian := distributions.NewIsotropicGaussian(2)
	// Merged parameters: mean then std, in ParamInfo order.
	merged := [][]float32{{1, 2, 0.5, 0.6}, {3, 4, 0.7, 0.8}}
	exec := MustNewExec(backend, func(mergedNode *Node) []*Node {
		params := distributions.SplitParams(gaussian, mergedNode)
		return []*Node{params[distributions.ParamMean], params[distributions.ParamStd]}
	})
	outputs, err := exec.Exec(merged)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, outputs[0].Value())
	assert.Equal(t, [][]float32{{0.5, 0.6}, {0.7, 0.8}}, outputs[1].Value())
}

func TestSplitParamsWidthMismatch(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	gaussian := distributions.NewIsotropicGaussian(2)
	_, err := ExecOnce(backend, func(mergedNode *Node) *Node {
		return distributions.SplitParams(gaussian, mergedNode)[distributions.ParamMean]
	}, [][]float32{{1, 2, 3}})
	require.Error(t, err)
}

func TestCategoricalNLL(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	categorical := distributions.NewCategorical(3)
	probs := [][]float32{{0.7, 0.2, 0.1}, {0.7, 0.2, 0.1}}
	samples := [][]float32{{1, 0, 0}, {0, 0, 1}}
	nll, err := ExecOnce(backend, func(samplesNode, probsNode *Node) *Node {
		return categorical.NLL(samplesNode, map[string]*Node{distributions.ParamProbs: probsNode})
	}, samples, probs)
	require.NoError(t, err)
	got := nll.Value().([]float32)
	assert.InDelta(t, -math.Log(0.7), float64(got[0]), 1e-4)
	assert.InDelta(t, -math.Log(0.1), float64(got[1]), 1e-4)
}

func TestCategoricalSampleIsOneHot(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	categorical := distributions.NewCategorical(4)
	ctx := context.New()
	// A degenerate prior: all mass on class 2.
	probs := [][]float32{{0, 0, 1, 0}, {0, 0, 1, 0}, {0, 0, 1, 0}}
	sample := context.MustExecOnce(backend, ctx, func(ctx *context.Context, probsNode *Node) *Node {
		return categorical.Sample(ctx, map[string]*Node{distributions.ParamProbs: probsNode})
	}, probs)
	rows := sample.Value().([][]float32)
	for _, row := range rows {
		assert.Equal(t, []float32{0, 0, 1, 0}, row)
	}
}

func TestGaussianNLLMonotonicity(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	gaussian := distributions.NewIsotropicGaussian(2)
	samples := [][]float32{{0.5, -1}, {2, 0}}
	// Unit std; the NLL at the true mean must not exceed the NLL at a
	// shifted mean.
	exec := MustNewExec(backend, func(samplesNode *Node) []*Node {
		std := OnesLike(samplesNode)
		atMean := gaussian.NLL(samplesNode, map[string]*Node{
			distributions.ParamMean: samplesNode,
			distributions.ParamStd:  std,
		})
		shifted := gaussian.NLL(samplesNode, map[string]*Node{
			distributions.ParamMean: AddScalar(samplesNode, 1),
			distributions.ParamStd:  std,
		})
		return []*Node{atMean, shifted}
	})
	outputs, err := exec.Exec(samples)
	require.NoError(t, err)
	atMean := outputs[0].Value().([]float32)
	shifted := outputs[1].Value().([]float32)
	for i := range atMean {
		assert.LessOrEqual(t, atMean[i], shifted[i])
	}
}

func TestGaussianSampleMatchesMeanWithZeroStd(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	gaussian := distributions.NewIsotropicGaussian(3)
	ctx := context.New()
	mean := [][]float32{{1, 2, 3}}
	sample := context.MustExecOnce(backend, ctx, func(ctx *context.Context, meanNode *Node) *Node {
		return gaussian.Sample(ctx, map[string]*Node{
			distributions.ParamMean: meanNode,
			distributions.ParamStd:  ZerosLike(meanNode),
		})
	}, mean)
	got := sample.Value().([][]float32)
	assert.InDeltaSlice(t, []float32{1, 2, 3}, got[0], 1e-6)
}

func TestBernoulliSampleIsBinary(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	bernoulli := distributions.NewBernoulli(4)
	ctx := context.New()
	probs := [][]float32{{0.1, 0.9, 0.5, 0.001}, {0.99, 0.3, 0.7, 0.5}}
	sample := context.MustExecOnce(backend, ctx, func(ctx *context.Context, probsNode *Node) *Node {
		return bernoulli.Sample(ctx, map[string]*Node{distributions.ParamProbs: probsNode})
	}, probs)
	rows := sample.Value().([][]float32)
	for _, row := range rows {
		for _, v := range row {
			assert.True(t, v == 0 || v == 1, "sample value %g is not binary", v)
		}
	}
}

func TestBernoulliNLLOnImages(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	bernoulli := distributions.NewBernoulli(4)
	// Image-shaped [batch=1, 2, 2, 1] samples and probabilities: the NLL
	// must reduce everything but the batch axis.
	samples := [][][][]float32{{{{1}, {0}}, {{1}, {1}}}}
	probs := [][][][]float32{{{{0.8}, {0.4}}, {{0.9}, {0.5}}}}
	nll, err := ExecOnce(backend, func(samplesNode, probsNode *Node) *Node {
		return bernoulli.NLL(samplesNode, map[string]*Node{distributions.ParamProbs: probsNode})
	}, samples, probs)
	require.NoError(t, err)
	got := nll.Value().([]float32)
	want := -(math.Log(0.8) + math.Log(0.6) + math.Log(0.9) + math.Log(0.5))
	require.Len(t, got, 1)
	assert.InDelta(t, want, float64(got[0]), 1e-4)
}
