package nnue

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// LoadWeights reads a zstd-compressed NNUE blob from path and populates n.
// The decompressed byte order is fixed by spec §6:
//  1. ft.bias    — POSITIONAL int16
//  2. ft.weight  — FeatureLen x POSITIONAL int16, feature-major
//  3. psqt.weight — FeatureLen x MATERIAL int32, feature-major
//  4. for each of MATERIAL phases: one int32 bias, then 2*POSITIONAL int8
//     weights (us then them)
//
// The stream must end immediately after the last weight.
func (n *Network) LoadWeights(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("nnue: open %s: %w", path, err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("nnue: zstd reader: %w", err)
	}
	defer dec.Close()

	return n.loadFrom(dec)
}

func (n *Network) loadFrom(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &n.FTBias); err != nil {
		return fmt.Errorf("nnue: read ft.bias: %w", err)
	}

	if n.FTWeight == nil {
		n.FTWeight = make([][POSITIONAL]int16, FeatureLen)
	}
	for i := 0; i < FeatureLen; i++ {
		if err := binary.Read(r, binary.LittleEndian, &n.FTWeight[i]); err != nil {
			return fmt.Errorf("nnue: read ft.weight[%d]: %w", i, err)
		}
	}

	if n.PSQTWeight == nil {
		n.PSQTWeight = make([][MATERIAL]int32, FeatureLen)
	}
	for i := 0; i < FeatureLen; i++ {
		if err := binary.Read(r, binary.LittleEndian, &n.PSQTWeight[i]); err != nil {
			return fmt.Errorf("nnue: read psqt.weight[%d]: %w", i, err)
		}
	}

	for p := 0; p < MATERIAL; p++ {
		if err := binary.Read(r, binary.LittleEndian, &n.Hidden[p].Bias); err != nil {
			return fmt.Errorf("nnue: read hidden[%d].bias: %w", p, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &n.Hidden[p].Weight); err != nil {
			return fmt.Errorf("nnue: read hidden[%d].weight: %w", p, err)
		}
	}

	var trailing [1]byte
	if _, err := io.ReadFull(r, trailing[:]); !errors.Is(err, io.EOF) {
		return fmt.Errorf("nnue: trailing bytes after last weight")
	}

	return nil
}
