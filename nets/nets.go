// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package nets provides default network topologies for the InfoGAN assembly:
// a deconvolutional generator, a convolutional shared trunk and the two small
// heads (discriminator and encoder) that sit on top of the trunk. They follow
// the architecture of the original InfoGAN MNIST experiment and work for any
// square-ish image whose sides are divisible by 4.
//
// The networks are plain graph functions wrapped in infogan.Network values;
// custom architectures can be dropped in by providing different Apply
// functions.
package nets

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/layers/batchnorm"

	"github.com/gomlx/infogan/infogan"
)

// Default weight-group (scope) names for the four networks.
const (
	GeneratorName        = "generator"
	SharedTrunkName      = "shared"
	DiscriminatorTopName = "discriminator"
	EncoderTopName       = "encoder"
)

// Generator returns the deconvolutional generator: a dense projection to a
// quarter-resolution feature map followed by two upsample-and-convolve
// blocks. Its output is linear, shaped [batch, imageShape...]; the output
// distribution's activation is applied by the model.
func Generator(imageShape []int) infogan.Network {
	if len(imageShape) != 3 {
		Panicf("nets.Generator: imageShape must be [height, width, channels], got %v", imageShape)
	}
	height, width, channels := imageShape[0], imageShape[1], imageShape[2]
	if height%4 != 0 || width%4 != 0 {
		Panicf("nets.Generator: image sides must be divisible by 4, got %dx%d", height, width)
	}
	return infogan.Network{
		Name: GeneratorName,
		Apply: func(ctx *context.Context, latents *Node) *Node {
			batchSize := latents.Shape().Dimensions[0]
			x := layers.Dense(ctx.In("project"), latents, true, 1024)
			x = activations.Relu(x)
			x = batchnorm.New(ctx.In("project_norm"), x, -1).Done()

			h4, w4 := height/4, width/4
			x = layers.Dense(ctx.In("seed"), x, true, h4*w4*128)
			x = activations.Relu(x)
			x = batchnorm.New(ctx.In("seed_norm"), x, -1).Done()
			x = Reshape(x, batchSize, h4, w4, 128)

			x = upSample2x(x)
			x = layers.Convolution(ctx.In("conv_0"), x).Channels(64).KernelSize(4).PadSame().Done()
			x = activations.Relu(x)
			x = batchnorm.New(ctx.In("conv_0_norm"), x, -1).Done()

			x = upSample2x(x)
			x = layers.Convolution(ctx.In("conv_1"), x).Channels(channels).KernelSize(4).PadSame().Done()
			x.AssertDims(batchSize, height, width, channels)
			return x
		},
	}
}

// SharedTrunk returns the convolutional feature extractor shared by the
// discriminator and encoder heads: two strided convolutions followed by a
// dense layer, output shaped [batch, featureDim].
func SharedTrunk() infogan.Network {
	return infogan.Network{
		Name: SharedTrunkName,
		Apply: func(ctx *context.Context, images *Node) *Node {
			batchSize := images.Shape().Dimensions[0]
			x := layers.Convolution(ctx.In("conv_0"), images).Channels(64).KernelSize(4).Strides(2).PadSame().Done()
			x = activations.LeakyReluWith(x, 0.1)
			x = layers.Convolution(ctx.In("conv_1"), x).Channels(128).KernelSize(4).Strides(2).PadSame().Done()
			x = activations.LeakyReluWith(x, 0.1)
			x = batchnorm.New(ctx.In("conv_1_norm"), x, -1).Done()
			x = Reshape(x, batchSize, -1)
			x = layers.Dense(ctx.In("dense"), x, true, 1024)
			x = activations.LeakyReluWith(x, 0.1)
			return batchnorm.New(ctx.In("dense_norm"), x, -1).Done()
		},
	}
}

// DiscriminatorTop returns the discriminator head: a single dense unit with a
// sigmoid, output shaped [batch, 1] with the probability that the input is a
// real sample.
func DiscriminatorTop() infogan.Network {
	return infogan.Network{
		Name: DiscriminatorTopName,
		Apply: func(ctx *context.Context, features *Node) *Node {
			return Sigmoid(layers.Dense(ctx.In("dense"), features, true, 1))
		},
	}
}

// EncoderTop returns the encoder head: one dense layer whose output feeds the
// per-distribution posterior heads.
func EncoderTop() infogan.Network {
	return infogan.Network{
		Name: EncoderTopName,
		Apply: func(ctx *context.Context, features *Node) *Node {
			x := layers.Dense(ctx.In("dense"), features, true, 128)
			x = batchnorm.New(ctx.In("dense_norm"), x, -1).Done()
			return activations.LeakyReluWith(x, 0.1)
		},
	}
}

// upSample2x doubles an image batch's height and width by nearest-neighbor
// repetition, [batch, h, w, c] to [batch, 2h, 2w, c].
func upSample2x(images *Node) *Node {
	shape := images.Shape()
	batchSize := shape.Dimensions[0]
	height, width := shape.Dimensions[1], shape.Dimensions[2]
	channels := shape.Dimensions[3]
	up := Concatenate([]*Node{images, images}, 3)
	up = Reshape(up, batchSize, height, 2*width, channels)
	up = Concatenate([]*Node{up, up}, 2)
	return Reshape(up, batchSize, 2*height, 2*width, channels)
}
