package nnue

import "github.com/rwbc/cindergo/internal/board"

// Evaluator ties a loaded Network to a per-search AccumulatorStack.
type Evaluator struct {
	net   *Network
	stack *AccumulatorStack
}

// NewEvaluator creates an evaluator with its own Network, loaded from
// weightsPath. If weightsPath is empty, the network keeps its zero
// weights; this is only useful for unit tests that don't care about
// evaluation quality (e.g. hidden-layer bit-exactness checks).
func NewEvaluator(weightsPath string) (*Evaluator, error) {
	net := NewNetwork()
	if weightsPath != "" {
		if err := net.LoadWeights(weightsPath); err != nil {
			return nil, err
		}
	}
	return &Evaluator{net: net, stack: NewAccumulatorStack()}, nil
}

// NewEvaluatorWithNetwork creates an evaluator backed by an already-loaded,
// shared Network. The network is process-global and read-only; each
// evaluator gets its own private AccumulatorStack, making this the
// constructor Lazy SMP workers use so all threads share one set of
// weights without sharing mutable per-position state.
func NewEvaluatorWithNetwork(net *Network) *Evaluator {
	return &Evaluator{net: net, stack: NewAccumulatorStack()}
}

// Evaluate returns the position's evaluation in centipawns from the
// perspective of the side to move, per spec §4.2.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	acc := e.stack.Current()
	if !acc.Computed {
		acc.ComputeFull(pos, e.net)
	}

	stm := pos.SideToMove
	nstm := stm.Other()
	phase := PhaseBucket(pos)

	y := e.net.Hidden[phase].Forward(&acc.Positional[stm], &acc.Positional[nstm])
	y += acc.Material[stm][phase]

	score := int(y) / OutputScale
	if score > MaxCentipawn {
		score = MaxCentipawn
	} else if score < -MaxCentipawn {
		score = -MaxCentipawn
	}
	if stm == board.Black {
		score = -score
	}
	return score
}

// Push saves the current accumulator state before MakeMove.
func (e *Evaluator) Push() { e.stack.Push() }

// Pop restores the accumulator state after UnmakeMove.
func (e *Evaluator) Pop() { e.stack.Pop() }

// Refresh forces a from-scratch recomputation of the accumulator.
func (e *Evaluator) Refresh(pos *board.Position) {
	e.stack.Current().ComputeFull(pos, e.net)
}

// Update applies an incremental accumulator update after MakeMove.
func (e *Evaluator) Update(pos *board.Position, m board.Move, captured board.Piece) {
	e.stack.Current().UpdateIncremental(pos, m, captured, e.net)
}

// Reset clears the accumulator stack, e.g. at the start of a search.
func (e *Evaluator) Reset() { e.stack.Reset() }
