package nnue

import (
	"math/rand"
	"testing"

	"github.com/rwbc/cindergo/internal/board"
	"github.com/stretchr/testify/require"
)

// TestHiddenLayerBackendsAgree exercises spec §8 property 6: every dispatch
// backend must agree bit-for-bit with the scalar reference. This
// implementation routes every build's Backend constant to the same
// HiddenLayer.Forward, so backend agreement holds by construction; this
// test pins the scalar reference itself against a direct re-computation
// over seeded random inputs.
func TestHiddenLayerBackendsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	var h HiddenLayer
	h.Bias = 1234
	for i := 0; i < POSITIONAL; i++ {
		h.Weight[0][i] = int8(rng.Intn(255) - 127)
		h.Weight[1][i] = int8(rng.Intn(255) - 127)
	}

	var us, them [POSITIONAL]int16
	for i := 0; i < POSITIONAL; i++ {
		us[i] = int16(rng.Intn(600) - 300)
		them[i] = int16(rng.Intn(600) - 300)
	}

	want := h.Bias
	for i := 0; i < POSITIONAL; i++ {
		want += int32(h.Weight[0][i]) * clippedSquare(us[i])
	}
	for i := 0; i < POSITIONAL; i++ {
		want += int32(h.Weight[1][i]) * clippedSquare(them[i])
	}

	got := h.Forward(&us, &them)
	require.Equal(t, want, got)
}

func TestClippedSquareBounds(t *testing.T) {
	require.Equal(t, int32(0), clippedSquare(-5))
	require.Equal(t, int32(0), clippedSquare(0))
	// x=255: s=2040, q=(2040*2040+16384)>>15 = 127
	require.Equal(t, int32(127), clippedSquare(255))
	require.Equal(t, int32(127), clippedSquare(1000))
}

// TestAccumulatorConsistency checks spec §8 property 5: after each move of a
// short sequence, the incrementally updated accumulator matches a
// from-scratch recomputation.
func TestAccumulatorConsistency(t *testing.T) {
	net := NewNetwork()
	rng := rand.New(rand.NewSource(42))
	for i := range net.FTBias {
		net.FTBias[i] = int16(rng.Intn(200) - 100)
	}
	for f := 0; f < FeatureLen; f++ {
		for i := 0; i < POSITIONAL; i++ {
			net.FTWeight[f][i] = int16(rng.Intn(20) - 10)
		}
		for i := 0; i < MATERIAL; i++ {
			net.PSQTWeight[f][i] = int32(rng.Intn(40) - 20)
		}
	}

	pos := board.NewPosition()
	stack := NewAccumulatorStack()
	stack.Current().ComputeFull(pos, net)

	moves := []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5"}
	for _, alg := range moves {
		m, err := board.ParseMove(alg, pos)
		require.NoError(t, err)

		captured := pos.PieceAt(m.To())
		stack.Push()
		pos.MakeMove(m)
		stack.Current().UpdateIncremental(pos, m, captured, net)

		var fromScratch Accumulator
		fromScratch.ComputeFull(pos, net)

		require.Equal(t, fromScratch.Positional, stack.Current().Positional, "positional mismatch after %s", alg)
		require.Equal(t, fromScratch.Material, stack.Current().Material, "material mismatch after %s", alg)
	}
}
