package engine

import "github.com/rwbc/cindergo/internal/board"

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// Material values used by quiescence delta pruning (MVV-LVA ordering uses
// its own table in ordering.go). Static evaluation itself comes from NNUE;
// these are pruning heuristics only.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

var pieceValues = [6]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0}

// PVTable stores the principal variation collected during one search,
// triangular-indexed as ply increases.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for j := ply + 1; j < pv.length[ply+1]; j++ {
		pv.moves[ply][j] = pv.moves[ply+1][j]
	}
	pv.length[ply] = pv.length[ply+1]
}

// line returns the collected PV as a slice, starting from ply 0.
func (pv *PVTable) line() []board.Move {
	out := make([]board.Move, pv.length[0])
	copy(out, pv.moves[0][:pv.length[0]])
	return out
}

// Report is the outcome of a search: a PV, the depth it was completed to,
// and a score relative to the side to move.
type Report struct {
	PV    []board.Move
	Depth int
	Score int
	Nodes uint64
}

// BestMove is a convenience accessor for Report's first PV move.
func (r Report) BestMove() board.Move {
	if len(r.PV) == 0 {
		return board.NoMove
	}
	return r.PV[0]
}

// isMateScore reports whether score represents a forced mate rather than
// a centipawn evaluation.
func isMateScore(score int) bool {
	return score > MateScore-MaxPly || score < -MateScore+MaxPly
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
