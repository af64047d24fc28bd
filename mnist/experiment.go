// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package mnist

import (
	"fmt"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	timage "github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"k8s.io/klog/v2"

	"github.com/gomlx/infogan/infogan"
	"github.com/gomlx/infogan/distributions"
	"github.com/gomlx/infogan/nets"
)

// Latent structure of the MNIST experiment, following the InfoGAN paper: one
// categorical code (digit identity), two scalar Gaussian codes (stroke style)
// and 62 dimensions of Gaussian noise.
const (
	CategoricalDistName = "c1"
	Gaussian1DistName   = "c2"
	Gaussian2DistName   = "c3"
	NoiseDistName       = "z"

	NoiseDim = 62
)

// Config of a training run.
type Config struct {
	// DataDir holds (or receives) the downloaded MNIST files.
	DataDir string

	// CheckpointDir receives model checkpoints; empty disables checkpointing.
	CheckpointDir string

	// BatchSize per training step.
	BatchSize int

	// NumSteps of alternating discriminator/generator training.
	NumSteps int

	// LabeledFraction of examples whose digit labels supervise the
	// categorical code. Zero trains fully unsupervised.
	LabeledFraction float64

	// Seed for shuffling and label masking.
	Seed int64
}

// NewModel assembles the MNIST InfoGAN: default network topologies, the
// paper's latent structure and a uniform/standard-normal prior bank.
func NewModel(backend backends.Backend, ctx *context.Context, batchSize int) *infogan.InfoGAN {
	return infogan.New(backend, ctx, infogan.Config{
		BatchSize:  batchSize,
		ImageShape: ImageShape(),
		NoiseDists: []infogan.NamedDist{
			{Name: NoiseDistName, Dist: distributions.NewIsotropicGaussian(NoiseDim)},
		},
		MeaningfulDists: []infogan.NamedDist{
			{Name: CategoricalDistName, Dist: distributions.NewCategorical(NumClasses)},
			{Name: Gaussian1DistName, Dist: distributions.NewIsotropicGaussian(1)},
			{Name: Gaussian2DistName, Dist: distributions.NewIsotropicGaussian(1)},
		},
		ImageDist:          distributions.NewBernoulli(Height * Width * Channels),
		Prior:              Prior(batchSize),
		SupervisedDistName: CategoricalDistName,
		Generator:          nets.Generator(ImageShape()),
		SharedTrunk:        nets.SharedTrunk(),
		DiscriminatorTop:   nets.DiscriminatorTop(),
		EncoderTop:         nets.EncoderTop(),
	})
}

// Prior returns the MNIST prior bank: a uniform categorical and standard
// normal Gaussians, replicated over the batch.
func Prior(batchSize int) infogan.PriorParams {
	return infogan.PriorParams{
		CategoricalDistName: {
			distributions.ParamProbs: constantTensor(batchSize, NumClasses, 1.0/NumClasses),
		},
		Gaussian1DistName: {
			distributions.ParamMean: constantTensor(batchSize, 1, 0),
			distributions.ParamStd:  constantTensor(batchSize, 1, 1),
		},
		Gaussian2DistName: {
			distributions.ParamMean: constantTensor(batchSize, 1, 0),
			distributions.ParamStd:  constantTensor(batchSize, 1, 1),
		},
		NoiseDistName: {
			distributions.ParamMean: constantTensor(batchSize, NoiseDim, 0),
			distributions.ParamStd:  constantTensor(batchSize, NoiseDim, 1),
		},
	}
}

func constantTensor(batchSize, dim int, value float32) *tensors.Tensor {
	flat := make([]float32, batchSize*dim)
	for i := range flat {
		flat[i] = value
	}
	return tensors.FromFlatDataAndDimensions(flat, batchSize, dim)
}

// checkpointsToKeep when checkpointing is enabled.
const checkpointsToKeep = 5

// stepsPerCheckpoint between checkpoint saves.
const stepsPerCheckpoint = 1000

// sampledImagesToSave alongside each checkpoint.
const sampledImagesToSave = 16

// saveSamples generates one batch from the prior and writes the first few
// images as PNGs under dir/samples, tagged with the step number.
func saveSamples(model *infogan.InfoGAN, dir string, step int) error {
	samplesDir := filepath.Join(dir, "samples")
	if err := os.MkdirAll(samplesDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", samplesDir)
	}
	generated := model.Generate()
	images := timage.ToImage().MaxValue(1.0).Batch(generated)
	if len(images) > sampledImagesToSave {
		images = images[:sampledImagesToSave]
	}
	for i, img := range images {
		imgPath := filepath.Join(samplesDir, fmt.Sprintf("step%06d_%02d.png", step, i))
		f, err := os.Create(imgPath)
		if err != nil {
			return errors.Wrapf(err, "creating %s", imgPath)
		}
		if err := png.Encode(f, img); err != nil {
			_ = f.Close()
			return errors.Wrapf(err, "encoding %s", imgPath)
		}
		if err := f.Close(); err != nil {
			return errors.Wrapf(err, "closing %s", imgPath)
		}
	}
	return nil
}

// Train downloads MNIST if needed and runs cfg.NumSteps alternating training
// steps, logging losses periodically and checkpointing when configured.
func Train(backend backends.Backend, cfg Config) error {
	if err := Download(cfg.DataDir); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	ds, err := NewDataset(cfg.DataDir, cfg.BatchSize, cfg.LabeledFraction, rng)
	if err != nil {
		return err
	}
	klog.Infof("MNIST: %d training examples, batch size %d, %.1f%% labeled",
		ds.NumExamples(), cfg.BatchSize, 100*cfg.LabeledFraction)

	model := NewModel(backend, nil, cfg.BatchSize)
	if cfg.CheckpointDir != "" {
		if err := model.AttachCheckpoint(cfg.CheckpointDir, checkpointsToKeep); err != nil {
			return err
		}
	}
	if err := model.SanityCheck(); err != nil {
		return errors.WithMessage(err, "model graphs are inconsistent")
	}

	bar := progressbar.NewOptions(cfg.NumSteps,
		progressbar.OptionSetDescription("training"),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
	)
	for step := 1; step <= cfg.NumSteps; step++ {
		images, labels := ds.NextBatch()
		lossValues := model.TrainOnBatch(images, labels)
		_ = bar.Add(1)

		if step%100 == 0 || step == cfg.NumSteps {
			klog.V(1).Infof("step %d: %s", step, formatLosses(lossValues))
		}
		if cfg.CheckpointDir != "" && (step%stepsPerCheckpoint == 0 || step == cfg.NumSteps) {
			if err := model.Save(); err != nil {
				return errors.WithMessagef(err, "saving checkpoint at step %d", step)
			}
			if err := saveSamples(model, cfg.CheckpointDir, step); err != nil {
				return errors.WithMessagef(err, "saving generated samples at step %d", step)
			}
		}
	}
	_ = bar.Close()
	return nil
}

// formatLosses renders the loss map sorted by name, so discriminator losses
// come before generator losses.
func formatLosses(lossValues map[string]float64) string {
	names := maps.Keys(lossValues)
	slices.Sort(names)
	out := ""
	for _, name := range names {
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%.4f", name, lossValues[name])
	}
	return out
}
