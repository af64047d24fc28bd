// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package mnist trains an InfoGAN on the MNIST handwritten digits: one
// categorical latent code over 10 classes (which learns to track digit
// identity) plus two continuous codes (stroke style), a 62-dimensional noise
// vector and a Bernoulli output distribution over the 28x28 images.
package mnist

import (
	"compress/gzip"
	"encoding/binary"
	"io"
	"math/rand"
	"net/url"
	"os"
	"path"

	"github.com/gomlx/gomlx/examples/downloader"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
)

const (
	downloadURL         = "https://storage.googleapis.com/cvdf-datasets/mnist"
	trainImagesFilename = "train-images-idx3-ubyte.gz"
	trainLabelsFilename = "train-labels-idx1-ubyte.gz"

	// Width, Height and Channels of one MNIST image.
	Width    = 28
	Height   = 28
	Channels = 1

	// NumClasses of digits.
	NumClasses = 10

	imageMagic = 0x00000803
	labelMagic = 0x00000801
)

// ImageShape of one sample, as expected by infogan.Config.
func ImageShape() []int { return []int{Height, Width, Channels} }

// Download fetches the MNIST training set files into baseDir, skipping files
// already present.
func Download(baseDir string) error {
	baseDir = fsutil.MustReplaceTildeInDir(baseDir)
	if err := os.MkdirAll(baseDir, 0777); err != nil {
		return errors.Wrapf(err, "creating data directory %q", baseDir)
	}
	for _, file := range []string{trainImagesFilename, trainLabelsFilename} {
		fileURL := must.M1(url.JoinPath(downloadURL, file))
		if err := downloader.DownloadIfMissing(fileURL, path.Join(baseDir, file), ""); err != nil {
			return errors.Wrapf(err, "downloading %q", file)
		}
	}
	return nil
}

// Dataset yields shuffled batches of MNIST training images scaled to [0, 1]
// and their one-hot labels. To simulate semi-supervised training, only a
// configurable fraction of examples keeps its label; the rest yield all-zero
// label rows, the model's "label missing" marker.
//
// It is not safe for concurrent use.
type Dataset struct {
	images []float32 // numExamples * Height * Width
	labels []int8
	// labeled flags which examples keep their label in yielded batches.
	labeled []bool

	batchSize int
	rng       *rand.Rand
	indices   []int
	position  int
}

// NewDataset loads the MNIST training set from baseDir (see Download) and
// prepares batch iteration. labeledFraction in [0, 1] selects the share of
// examples whose labels are exposed; rng drives both that selection and the
// per-epoch shuffle.
func NewDataset(baseDir string, batchSize int, labeledFraction float64, rng *rand.Rand) (*Dataset, error) {
	baseDir = fsutil.MustReplaceTildeInDir(baseDir)
	images, err := loadImages(path.Join(baseDir, trainImagesFilename))
	if err != nil {
		return nil, err
	}
	labels, err := loadLabels(path.Join(baseDir, trainLabelsFilename))
	if err != nil {
		return nil, err
	}
	numExamples := len(labels)
	if len(images) != numExamples*Height*Width {
		return nil, errors.Errorf("MNIST files disagree: %d labels for %d pixels",
			numExamples, len(images))
	}
	ds := &Dataset{
		images:    images,
		labels:    labels,
		labeled:   make([]bool, numExamples),
		batchSize: batchSize,
		rng:       rng,
	}
	for i := range ds.labeled {
		ds.labeled[i] = rng.Float64() < labeledFraction
	}
	ds.reshuffle()
	return ds, nil
}

// NumExamples in the training set.
func (ds *Dataset) NumExamples() int { return len(ds.labels) }

func (ds *Dataset) reshuffle() {
	ds.indices = ds.rng.Perm(ds.NumExamples())
	ds.position = 0
}

// NextBatch returns the next batch of images shaped
// [batchSize, Height, Width, Channels] with values in [0, 1], and one-hot
// labels shaped [batchSize, NumClasses] where unlabeled examples are all-zero
// rows. It reshuffles and wraps around at the end of each epoch, so every
// batch is full.
func (ds *Dataset) NextBatch() (images, labels *tensors.Tensor) {
	if ds.position+ds.batchSize > len(ds.indices) {
		ds.reshuffle()
	}
	batch := ds.indices[ds.position : ds.position+ds.batchSize]
	ds.position += ds.batchSize

	pixels := Height * Width
	imagesFlat := make([]float32, ds.batchSize*pixels)
	labelsFlat := make([]float32, ds.batchSize*NumClasses)
	for i, example := range batch {
		copy(imagesFlat[i*pixels:(i+1)*pixels], ds.images[example*pixels:(example+1)*pixels])
		if ds.labeled[example] {
			labelsFlat[i*NumClasses+int(ds.labels[example])] = 1
		}
	}
	images = tensors.FromFlatDataAndDimensions(imagesFlat, ds.batchSize, Height, Width, Channels)
	labels = tensors.FromFlatDataAndDimensions(labelsFlat, ds.batchSize, NumClasses)
	return
}

func loadImages(filename string) ([]float32, error) {
	var images []float32
	err := readIdxFile(filename, imageMagic, 3, func(reader io.Reader, dims []int32) error {
		numPixels := int(dims[0]) * int(dims[1]) * int(dims[2])
		raw := make([]byte, numPixels)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return err
		}
		images = make([]float32, numPixels)
		for i, b := range raw {
			images[i] = float32(b) / 255
		}
		return nil
	})
	return images, err
}

func loadLabels(filename string) ([]int8, error) {
	var labels []int8
	err := readIdxFile(filename, labelMagic, 1, func(reader io.Reader, dims []int32) error {
		raw := make([]byte, int(dims[0]))
		if _, err := io.ReadFull(reader, raw); err != nil {
			return err
		}
		labels = make([]int8, len(raw))
		for i, b := range raw {
			labels[i] = int8(b)
		}
		return nil
	})
	return labels, err
}

// readIdxFile parses one gzipped file in the MNIST "idx" format: a magic
// number, numDims big-endian int32 dimensions, then the raw payload bytes.
func readIdxFile(filename string, wantMagic int32, numDims int, payloadFn func(reader io.Reader, dims []int32) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "opening %q", filename)
	}
	defer func() { _ = f.Close() }()
	reader, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "decompressing %q", filename)
	}
	defer func() { _ = reader.Close() }()

	var magic int32
	if err := binary.Read(reader, binary.BigEndian, &magic); err != nil {
		return errors.Wrapf(err, "reading magic of %q", filename)
	}
	if magic != wantMagic {
		return errors.Errorf("file %q has magic 0x%x, want 0x%x", filename, magic, wantMagic)
	}
	dims := make([]int32, numDims)
	if err := binary.Read(reader, binary.BigEndian, &dims); err != nil {
		return errors.Wrapf(err, "reading header of %q", filename)
	}
	if err := payloadFn(reader, dims); err != nil {
		return errors.Wrapf(err, "reading payload of %q", filename)
	}
	return nil
}
