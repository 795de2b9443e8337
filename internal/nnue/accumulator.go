package nnue

import "github.com/rwbc/cindergo/internal/board"

// Accumulator is the per-position NNUE state: for each perspective, the
// feature-transformer output (Positional) and the psqt material vector
// (Material), indexed like board.Position's own [board.White,board.Black]
// arrays. Invariant: Positional[c]/Material[c] equal the feature-transformer
// bias plus the sum of weights of every feature currently active for
// perspective c.
type Accumulator struct {
	Positional [2][POSITIONAL]int16
	Material   [2][MATERIAL]int32
	Computed   bool
}

// AccumulatorStack holds one Accumulator per ply of search, so that
// UnmakeMove can restore the previous accumulator in O(1) instead of
// recomputing it.
type AccumulatorStack struct {
	stack [128]Accumulator
	top   int
}

func NewAccumulatorStack() *AccumulatorStack {
	return &AccumulatorStack{}
}

// Push duplicates the current accumulator onto a new stack slot, to be
// mutated incrementally by the move about to be made.
func (s *AccumulatorStack) Push() {
	if s.top < len(s.stack)-1 {
		s.stack[s.top+1] = s.stack[s.top]
		s.top++
	}
}

// Pop discards the current slot, restoring the accumulator from before the
// last move.
func (s *AccumulatorStack) Pop() {
	if s.top > 0 {
		s.top--
	}
}

func (s *AccumulatorStack) Current() *Accumulator {
	return &s.stack[s.top]
}

func (s *AccumulatorStack) Reset() {
	s.top = 0
	s.stack[0] = Accumulator{}
}

// ComputeFull recomputes both perspectives from scratch. This is the only
// path taken after a king move, per spec §4.2.
func (acc *Accumulator) ComputeFull(pos *board.Position, net *Network) {
	whiteFeatures, blackFeatures := GetActiveFeatures(pos)
	acc.computeSide(board.White, whiteFeatures, net)
	acc.computeSide(board.Black, blackFeatures, net)
	acc.Computed = true
}

func (acc *Accumulator) computeSide(side board.Color, features []int, net *Network) {
	copy(acc.Positional[side][:], net.FTBias[:])
	for i := range acc.Material[side] {
		acc.Material[side][i] = 0
	}
	for _, idx := range features {
		if idx < 0 || idx >= FeatureLen {
			continue
		}
		row := net.FTWeight[idx]
		for i := 0; i < POSITIONAL; i++ {
			acc.Positional[side][i] += row[i]
		}
		psqtRow := net.PSQTWeight[idx]
		for i := 0; i < MATERIAL; i++ {
			acc.Material[side][i] += psqtRow[i]
		}
	}
}

// UpdateIncremental applies the symmetric difference of active features
// caused by playing m (already applied to pos). Falls back to ComputeFull
// on a king move or an uncomputed accumulator.
func (acc *Accumulator) UpdateIncremental(pos *board.Position, m board.Move, captured board.Piece, net *Network) {
	if !acc.Computed {
		acc.ComputeFull(pos, net)
		return
	}

	movedPiece := pos.PieceAt(m.To())
	if movedPiece == board.NoPiece {
		acc.Computed = false
		return
	}
	if movedPiece.Type() == board.King {
		acc.ComputeFull(pos, net)
		return
	}

	whiteAdd, whiteRem, blackAdd, blackRem := GetChangedFeatures(pos, m, captured)
	acc.applyDiff(board.White, whiteAdd, whiteRem, net)
	acc.applyDiff(board.Black, blackAdd, blackRem, net)
}

func (acc *Accumulator) applyDiff(side board.Color, add, rem []int, net *Network) {
	for _, idx := range rem {
		if idx < 0 || idx >= FeatureLen {
			continue
		}
		row := net.FTWeight[idx]
		psqtRow := net.PSQTWeight[idx]
		for i := 0; i < POSITIONAL; i++ {
			acc.Positional[side][i] -= row[i]
		}
		for i := 0; i < MATERIAL; i++ {
			acc.Material[side][i] -= psqtRow[i]
		}
	}
	for _, idx := range add {
		if idx < 0 || idx >= FeatureLen {
			continue
		}
		row := net.FTWeight[idx]
		psqtRow := net.PSQTWeight[idx]
		for i := 0; i < POSITIONAL; i++ {
			acc.Positional[side][i] += row[i]
		}
		for i := 0; i < MATERIAL; i++ {
			acc.Material[side][i] += psqtRow[i]
		}
	}
}
