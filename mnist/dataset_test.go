// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package mnist

import (
	"compress/gzip"
	"encoding/binary"
	"math/rand"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeIdxFile writes a gzipped MNIST "idx" file with the given header and
// payload bytes.
func writeIdxFile(t *testing.T, filename string, magic int32, dims []int32, payload []byte) {
	t.Helper()
	f, err := os.Create(filename)
	require.NoError(t, err)
	w := gzip.NewWriter(f)
	require.NoError(t, binary.Write(w, binary.BigEndian, magic))
	require.NoError(t, binary.Write(w, binary.BigEndian, dims))
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

// writeTestSet writes a tiny synthetic training set with numExamples images,
// where example i is filled with pixel value i*16 and labeled i%10.
func writeTestSet(t *testing.T, baseDir string, numExamples int) {
	t.Helper()
	pixels := Height * Width
	images := make([]byte, numExamples*pixels)
	labels := make([]byte, numExamples)
	for i := range numExamples {
		for p := 0; p < pixels; p++ {
			images[i*pixels+p] = byte(i * 16)
		}
		labels[i] = byte(i % 10)
	}
	writeIdxFile(t, path.Join(baseDir, trainImagesFilename), imageMagic,
		[]int32{int32(numExamples), Height, Width}, images)
	writeIdxFile(t, path.Join(baseDir, trainLabelsFilename), labelMagic,
		[]int32{int32(numExamples)}, labels)
}

func TestDatasetBatches(t *testing.T) {
	baseDir := t.TempDir()
	writeTestSet(t, baseDir, 6)
	rng := rand.New(rand.NewSource(1))
	ds, err := NewDataset(baseDir, 4, 1.0, rng)
	require.NoError(t, err)
	assert.Equal(t, 6, ds.NumExamples())

	images, labels := ds.NextBatch()
	assert.Equal(t, []int{4, Height, Width, Channels}, images.Shape().Dimensions)
	assert.Equal(t, []int{4, NumClasses}, labels.Shape().Dimensions)

	// Pixel values are scaled to [0, 1] and constant per example, which
	// identifies the example; its label must be consistent with it.
	imageRows := images.Value().([][][][]float32)
	labelRows := labels.Value().([][]float32)
	for i := range imageRows {
		pixel := imageRows[i][0][0][0]
		example := int(pixel*255/16 + 0.5)
		require.Less(t, example, 6)
		wantLabel := example % 10
		assert.Equal(t, float32(1), labelRows[i][wantLabel])
		var total float32
		for _, v := range labelRows[i] {
			total += v
		}
		assert.Equal(t, float32(1), total, "labels must be one-hot")
	}
}

func TestDatasetUnlabeledFraction(t *testing.T) {
	baseDir := t.TempDir()
	writeTestSet(t, baseDir, 8)
	rng := rand.New(rand.NewSource(2))
	ds, err := NewDataset(baseDir, 8, 0, rng)
	require.NoError(t, err)

	// With labeledFraction zero every label row is all-zero.
	_, labels := ds.NextBatch()
	for _, row := range labels.Value().([][]float32) {
		for _, v := range row {
			assert.Zero(t, v)
		}
	}
}

func TestDatasetWrapsAround(t *testing.T) {
	baseDir := t.TempDir()
	writeTestSet(t, baseDir, 6)
	rng := rand.New(rand.NewSource(3))
	ds, err := NewDataset(baseDir, 4, 0.5, rng)
	require.NoError(t, err)

	// Every batch is full, even past the end of an epoch.
	for range 5 {
		images, labels := ds.NextBatch()
		assert.Equal(t, 4, images.Shape().Dimensions[0])
		assert.Equal(t, 4, labels.Shape().Dimensions[0])
	}
}

func TestReadIdxFileRejectsBadMagic(t *testing.T) {
	baseDir := t.TempDir()
	filename := path.Join(baseDir, trainLabelsFilename)
	writeIdxFile(t, filename, 0x1234, []int32{2}, []byte{0, 1})
	_, err := loadLabels(filename)
	require.Error(t, err)
}
