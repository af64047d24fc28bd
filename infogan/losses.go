// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package infogan

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"

	"github.com/gomlx/infogan/distributions"
)

// Adversarial losses, each reduced to a scalar mean over the batch. The
// discriminator's two terms are halved so that their sum weighs the same as
// the generator's single term, and a small epsilon keeps the logarithms finite
// when the discriminator saturates.

// discRealLoss scores the discriminator on real samples: -log(p + eps) / 2,
// where p is the probability assigned to "real".
func discRealLoss(probReal *Node) *Node {
	g := probReal.Graph()
	epsilon := Scalar(g, probReal.DType(), distributions.Epsilon(probReal.DType()))
	return ReduceAllMean(MulScalar(Neg(Log(Add(probReal, epsilon))), 0.5))
}

// discGeneratedLoss scores the discriminator on generated samples:
// -log(1 - p + eps) / 2.
func discGeneratedLoss(probGenerated *Node) *Node {
	g := probGenerated.Graph()
	epsilon := Scalar(g, probGenerated.DType(), distributions.Epsilon(probGenerated.DType()))
	return ReduceAllMean(MulScalar(Neg(Log(Add(OneMinus(probGenerated), epsilon))), 0.5))
}

// generatorAdversarialLoss rewards the generator for fooling the
// discriminator: -log(p + eps) on generated samples. The non-saturating form,
// rather than +log(1-p).
func generatorAdversarialLoss(probGenerated *Node) *Node {
	g := probGenerated.Graph()
	epsilon := Scalar(g, probGenerated.DType(), distributions.Epsilon(probGenerated.DType()))
	return ReduceAllMean(Neg(Log(Add(probGenerated, epsilon))))
}

// mutualInfoLoss is the variational mutual-information bound for one
// meaningful distribution: the mean negative log-likelihood of the latent
// sample under the posterior predicted from the generated image. The sampled
// latent is the target, so its gradient is stopped; the loss trains the
// posterior (and, on the generator graph, the generator through the image).
func mutualInfoLoss(dist distributions.Distribution, sample, mergedPosterior *Node) *Node {
	params := distributions.SplitParams(dist, mergedPosterior)
	return ReduceAllMean(dist.NLL(StopGradient(sample), params))
}

// supervisedLoss is the mean negative log-likelihood of ground-truth labels
// under the posterior predicted from real images. An all-zero label row marks
// the example as unlabeled and contributes exactly zero; a batch with no
// labeled rows therefore yields a zero loss (and zero gradients).
func supervisedLoss(dist distributions.Distribution, labels, mergedPosterior *Node) *Node {
	params := distributions.SplitParams(dist, mergedPosterior)
	nll := dist.NLL(labels, params)
	labeled := LogicalNot(LogicalAll(Equal(labels, ZerosLike(labels)), -1))
	zeros := ZerosLike(nll)
	return ReduceAllMean(Where(labeled, nll, zeros))
}
