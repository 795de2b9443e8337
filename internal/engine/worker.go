package engine

import (
	"github.com/rwbc/cindergo/internal/board"
	"github.com/rwbc/cindergo/internal/nnue"
)

// Worker is one Lazy SMP search thread: it owns its own position copy,
// move orderer (killers + history) and NNUE accumulator stack, but shares
// the transposition table and stop trigger with every other worker.
type Worker struct {
	id int

	pos     *board.Position
	tt      *TranspositionTable
	orderer *MoveOrderer
	eval    *nnue.Evaluator
	stopper *Trigger

	limits Limits
	tm     *TimeManager

	nodes uint64
	pv    PVTable

	undoStack [MaxPly]board.UndoInfo
}

// NewWorker creates a worker bound to a shared TT, a shared (read-only)
// NNUE network and a shared stop trigger.
func NewWorker(id int, tt *TranspositionTable, net *nnue.Network, stopper *Trigger) *Worker {
	return &Worker{
		id:      id,
		tt:      tt,
		orderer: NewMoveOrderer(),
		eval:    nnue.NewEvaluatorWithNetwork(net),
		stopper: stopper,
	}
}

// Nodes returns the number of nodes searched during the most recent call
// to Search.
func (w *Worker) Nodes() uint64 { return w.nodes }

// Search runs iterative deepening from depth 1, calling onDepth after each
// completed iteration, and returns the report of the last depth that ran
// to completion. If no iteration completes, it falls back to the first
// legal root move at depth 0, per the search-termination contract.
func (w *Worker) Search(root *board.Position, limits Limits, tm *TimeManager, onDepth func(Report)) Report {
	w.pos = root.Copy()
	w.limits = limits
	w.tm = tm
	w.nodes = 0
	w.orderer.Clear()
	w.eval.Reset()
	w.eval.Refresh(w.pos)

	maxDepth := MaxPly - 1
	if limits.Kind == LimitDepth && limits.Depth > 0 && limits.Depth < maxDepth {
		maxDepth = limits.Depth
	}

	var best Report
	for depth := 1; depth <= maxDepth; depth++ {
		if !w.stopper.Armed() {
			break
		}

		score := w.negamax(depth, 0, -Infinity, Infinity)

		if !w.stopper.Armed() {
			break
		}

		best = Report{PV: w.pv.line(), Depth: depth, Score: score, Nodes: w.nodes}
		if onDepth != nil {
			onDepth(best)
		}

		if isMateScore(score) {
			break
		}
		if w.checkStop() {
			break
		}
		if w.tm != nil && w.tm.PastSoft() {
			break
		}
	}

	if best.PV == nil {
		moves := w.pos.GenerateLegalMoves()
		if moves.Len() > 0 {
			best = Report{PV: []board.Move{moves.Get(0)}, Depth: 0, Nodes: w.nodes}
		}
	}
	return best
}

// checkStop polls the shared trigger plus this worker's own node/time
// budget, disarming the trigger (for every worker) the first time either
// is exceeded.
func (w *Worker) checkStop() bool {
	if !w.stopper.Armed() {
		return true
	}
	if w.limits.Kind == LimitNodes && w.nodes >= w.limits.Nodes {
		w.stopper.Disarm()
		return true
	}
	if w.tm != nil && w.tm.PastHard() {
		w.stopper.Disarm()
		return true
	}
	return false
}

func (w *Worker) isDraw() bool {
	if w.pos.HalfMoveClock >= 100 {
		return true
	}
	return w.pos.IsInsufficientMaterial()
}

func (w *Worker) doMove(m board.Move) board.UndoInfo {
	captured := w.pos.PieceAt(m.To())
	if m.IsEnPassant() {
		captured = board.NewPiece(board.Pawn, w.pos.SideToMove.Other())
	}
	w.eval.Push()
	undo := w.pos.MakeMove(m)
	if undo.Valid {
		w.eval.Update(w.pos, m, captured)
	}
	return undo
}

func (w *Worker) undoMove(m board.Move, undo board.UndoInfo) {
	w.pos.UnmakeMove(m, undo)
	w.eval.Pop()
}

// negamax is a fail-soft alpha-beta search with TT probing/storing, MVV-LVA
// plus killer/history move ordering, null-move pruning and late-move
// reductions.
func (w *Worker) negamax(depth, ply int, alpha, beta int) int {
	w.nodes++
	if w.nodes&2047 == 0 && w.checkStop() {
		return 0
	}

	w.pv.length[ply] = ply

	if ply > 0 && w.isDraw() {
		return 0
	}
	if ply >= MaxPly-1 {
		return w.eval.Evaluate(w.pos)
	}

	ttMove := board.NoMove
	entry, found := w.tt.Probe(w.pos.Hash)
	if found {
		ttMove = entry.Best
		if int(entry.Depth) >= depth {
			score := AdjustScoreFromTT(int(entry.Score), ply)
			switch entry.Kind {
			case Exact:
				return score
			case Lower:
				if score > alpha {
					alpha = score
				}
			case Upper:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				return score
			}
		}
	}

	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	inCheck := w.pos.InCheck()

	// Null-move pruning: skip our move entirely and see if the opponent
	// still can't beat beta. Disabled in check and in pawn-only endings
	// to avoid zugzwang blindness.
	if depth >= 3 && !inCheck && ply > 0 && w.pos.HasNonPawnMaterial() {
		reduction := 3 + depth/4
		if reduction > depth-1 {
			reduction = depth - 1
		}
		undo := w.pos.MakeNullMove()
		w.eval.Push()
		score := -w.negamax(depth-1-reduction, ply+1, -beta, -beta+1)
		w.eval.Pop()
		w.pos.UnmakeNullMove(undo)
		if score >= beta {
			return score
		}
	}

	moves := w.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	scores := w.orderer.ScoreMoves(w.pos, moves, ply, ttMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	kind := Upper
	searched := 0

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)
		isQuiet := !move.IsCapture(w.pos) && !move.IsPromotion()

		undo := w.doMove(move)
		if !undo.Valid {
			w.undoMove(move, undo)
			continue
		}
		searched++

		newDepth := depth - 1
		if inCheck {
			newDepth++
		}

		var score int
		if searched > 3 && depth >= 3 && isQuiet && !inCheck {
			reduction := 1
			if searched > 8 {
				reduction = 2
			}
			reducedDepth := newDepth - reduction
			if reducedDepth < 1 {
				reducedDepth = 1
			}
			score = -w.negamax(reducedDepth, ply+1, -alpha-1, -alpha)
			if score > alpha {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha)
			}
		} else if searched == 1 {
			score = -w.negamax(newDepth, ply+1, -beta, -alpha)
		} else {
			score = -w.negamax(newDepth, ply+1, -alpha-1, -alpha)
			if score > alpha && score < beta {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha)
			}
		}

		w.undoMove(move, undo)

		if !w.stopper.Armed() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move
			if score > alpha {
				alpha = score
				kind = Exact
				w.pv.update(ply, move)
			}
		}

		if score >= beta {
			kind = Lower
			bestScore = score
			if isQuiet {
				w.orderer.UpdateKillers(move, ply)
				w.orderer.UpdateHistory(move, depth, true)
			}
			break
		}
	}

	w.storeTT(depth, bestScore, ply, kind, bestMove)
	return bestScore
}

func (w *Worker) storeTT(depth, score, ply int, kind Kind, best board.Move) {
	if depth < 0 {
		depth = 0
	}
	if depth > MaxTTDepth {
		depth = MaxTTDepth
	}
	w.tt.Store(w.pos.Hash, Entry{
		Score: int16(AdjustScoreToTT(score, ply)),
		Depth: uint8(depth),
		Best:  best,
		Kind:  kind,
	})
}

// quiescence searches captures and promotions only, with stand-pat
// pruning, to avoid the search horizon effect.
func (w *Worker) quiescence(ply int, alpha, beta int) int {
	w.nodes++
	if w.nodes&2047 == 0 && w.checkStop() {
		return 0
	}
	if ply >= MaxPly-1 {
		return w.eval.Evaluate(w.pos)
	}

	inCheck := w.pos.InCheck()
	standPat := w.eval.Evaluate(w.pos)

	if !inCheck {
		if standPat >= beta {
			return standPat
		}
		if standPat > alpha {
			alpha = standPat
		}
		if standPat+QueenValue < alpha {
			return alpha
		}
	}

	var moves *board.MoveList
	if inCheck {
		moves = w.pos.GenerateLegalMoves()
	} else {
		moves = w.pos.GenerateCaptures()
	}
	if inCheck && moves.Len() == 0 {
		return -MateScore + ply
	}

	scores := w.orderer.ScoreMoves(w.pos, moves, ply, board.NoMove)
	best := standPat
	if inCheck {
		best = -MateScore + ply
	}

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if !inCheck {
			captured := w.pos.PieceAt(move.To())
			var captureValue int
			if move.IsEnPassant() {
				captureValue = PawnValue
			} else if captured != board.NoPiece {
				captureValue = pieceValues[captured.Type()]
			}
			if move.IsPromotion() {
				captureValue += QueenValue - PawnValue
			}
			if standPat+captureValue+200 < alpha {
				continue
			}
		}

		undo := w.doMove(move)
		if !undo.Valid {
			w.undoMove(move, undo)
			continue
		}

		score := -w.quiescence(ply+1, -beta, -alpha)
		w.undoMove(move, undo)

		if score > best {
			best = score
			if score > alpha {
				alpha = score
			}
		}
		if score >= beta {
			return score
		}
	}

	return best
}
