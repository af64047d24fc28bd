// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nets_test

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/infogan/nets"
)

func TestGeneratorShape(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	gen := nets.Generator([]int{28, 28, 1})
	assert.Equal(t, nets.GeneratorName, gen.Name)

	latents := make([][]float32, 2)
	for i := range latents {
		latents[i] = make([]float32, 74)
	}
	out := context.MustExecOnce(backend, context.New(), func(ctx *context.Context, x *Node) *Node {
		return gen.Apply(ctx, x)
	}, latents)
	assert.Equal(t, []int{2, 28, 28, 1}, out.Shape().Dimensions)
}

func TestGeneratorValidatesImageShape(t *testing.T) {
	require.Panics(t, func() { nets.Generator([]int{28, 28}) })
	require.Panics(t, func() { nets.Generator([]int{30, 28, 1}) })
}

func TestTrunkAndHeadsShapes(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	trunk := nets.SharedTrunk()
	discTop := nets.DiscriminatorTop()
	encTop := nets.EncoderTop()

	images := make([][][][]float32, 2)
	for i := range images {
		images[i] = make([][][]float32, 28)
		for r := range images[i] {
			images[i][r] = make([][]float32, 28)
			for c := range images[i][r] {
				images[i][r][c] = []float32{0.5}
			}
		}
	}
	exec := context.MustNewExec(backend, context.New(), func(ctx *context.Context, x *Node) []*Node {
		features := trunk.Apply(ctx.In(trunk.Name), x)
		return []*Node{
			features,
			discTop.Apply(ctx.In(discTop.Name), features),
			encTop.Apply(ctx.In(encTop.Name), features),
		}
	})
	outs := exec.MustExec(images)
	assert.Equal(t, []int{2, 1024}, outs[0].Shape().Dimensions)
	assert.Equal(t, []int{2, 1}, outs[1].Shape().Dimensions)
	assert.Equal(t, []int{2, 128}, outs[2].Shape().Dimensions)

	// Discriminator scores are probabilities.
	for _, row := range outs[1].Value().([][]float32) {
		assert.GreaterOrEqual(t, row[0], float32(0))
		assert.LessOrEqual(t, row[0], float32(1))
	}
}
