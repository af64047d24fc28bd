// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Demo trains an InfoGAN on MNIST. Example:
//
//	go run . --data=~/work/mnist --checkpoint=~/work/mnist/infogan --steps=10000
package main

import (
	"flag"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/support/exceptions"
	"k8s.io/klog/v2"

	"github.com/gomlx/infogan/mnist"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagDataDir         = flag.String("data", "~/work/mnist", "Directory to cache the downloaded MNIST files.")
	flagCheckpoint      = flag.String("checkpoint", "", "Directory to save and load checkpoints from. If left empty, no checkpoints are created.")
	flagBatchSize       = flag.Int("batch", 128, "Batch size per training step.")
	flagNumSteps        = flag.Int("steps", 10000, "Number of alternating discriminator/generator training steps.")
	flagLabeledFraction = flag.Float64("labeled", 0.1, "Fraction of examples whose digit labels supervise the categorical code. 0 trains fully unsupervised.")
	flagSeed            = flag.Int64("seed", 42, "Seed for shuffling and label masking.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	backend := backends.MustNew()
	err := exceptions.TryCatch[error](func() {
		check(mnist.Train(backend, mnist.Config{
			DataDir:         *flagDataDir,
			CheckpointDir:   *flagCheckpoint,
			BatchSize:       *flagBatchSize,
			NumSteps:        *flagNumSteps,
			LabeledFraction: *flagLabeledFraction,
			Seed:            *flagSeed,
		}))
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

// check reports and exits on error.
func check(err error) {
	if err == nil {
		return
	}
	klog.Fatalf("Fatal error: %+v", err)
}
