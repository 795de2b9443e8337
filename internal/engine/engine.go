package engine

import (
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rwbc/cindergo/internal/applog"
	"github.com/rwbc/cindergo/internal/board"
	"github.com/rwbc/cindergo/internal/nnue"
)

var log = applog.Get("engine")

// Engine owns the shared transposition table, the shared (read-only) NNUE
// network, and a pool of Lazy SMP workers: every worker searches the same
// root position with private killers/history, reporting through a shared
// TT. The UCI front end is the only other goroutine touching an Engine;
// all its exported methods are safe to call between searches but Go/Stop
// are the only ones meant to overlap with a running search.
type Engine struct {
	tt      *TranspositionTable
	net     *nnue.Network
	workers []*Worker
	stopper *Trigger

	threads int
}

// NewEngine creates an engine with the given hash size (MiB) and thread
// count. The NNUE network starts zero-weighted; call LoadNNUE before the
// first search for a meaningful evaluation.
func NewEngine(hashMB, threads int) *Engine {
	if threads < 1 {
		threads = runtime.GOMAXPROCS(0)
	}
	net := nnue.NewNetwork()
	e := &Engine{
		tt:      NewTranspositionTableMB(hashMB),
		net:     net,
		stopper: NewTrigger(),
		threads: threads,
	}
	e.spawnWorkers()
	return e
}

func (e *Engine) spawnWorkers() {
	e.workers = make([]*Worker, e.threads)
	for i := range e.workers {
		e.workers[i] = NewWorker(i, e.tt, e.net, e.stopper)
	}
}

// LoadNNUE loads the network from a zstd-compressed weights file, shared
// by reference across every worker.
func (e *Engine) LoadNNUE(path string) error {
	log.Infof("loading NNUE weights from %s", path)
	if err := e.net.LoadWeights(path); err != nil {
		log.Errorf("failed to load NNUE weights: %v", err)
		return err
	}
	return nil
}

// SetHash resizes the transposition table. Per the UCI contract the
// requested size is rounded down to the largest power-of-two slot count
// that fits, which NewTranspositionTableMB already implements.
func (e *Engine) SetHash(mb int) {
	e.tt = NewTranspositionTableMB(mb)
	e.spawnWorkers()
}

// SetThreads resizes the worker pool.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	e.threads = n
	e.spawnWorkers()
}

// NewGame clears the transposition table, resets every worker's killer
// moves and halves its history scores, per the UCI `ucinewgame` contract.
func (e *Engine) NewGame() {
	e.tt.Clear()
	for _, w := range e.workers {
		w.orderer.Clear()
	}
}

// Stop disarms the shared trigger; every worker observes this at its next
// polling point and unwinds to its last completed iteration.
func (e *Engine) Stop() {
	e.stopper.Disarm()
}

// HashFull reports the permille of TT slots occupied, sampled from the
// first 1000 slots.
func (e *Engine) HashFull() int { return e.tt.HashFull() }

// Go runs a Lazy SMP search to the given limits and returns the report
// from worker 0 (the only worker whose result is authoritative; the rest
// exist purely to populate the shared TT faster). onDepth is called after
// each depth worker 0 completes, for UCI `info` reporting.
func (e *Engine) Go(pos *board.Position, limits Limits, onDepth func(Report)) Report {
	e.stopper = NewTrigger()
	for _, w := range e.workers {
		w.stopper = e.stopper
	}

	var tm *TimeManager
	switch limits.Kind {
	case LimitClock:
		tm = NewTimeManager(limits.RemainingMS, limits.IncrementMS, limits.MovesToGo)
	case LimitTime:
		tm = NewFixedTimeManager(time.Duration(limits.TimeMS) * time.Millisecond)
	}

	var g errgroup.Group
	results := make([]Report, len(e.workers))
	for i, w := range e.workers {
		i, w := i, w
		g.Go(func() error {
			var cb func(Report)
			if i == 0 {
				cb = onDepth
			}
			results[i] = w.Search(pos, limits, tm, cb)
			return nil
		})
	}
	_ = g.Wait()

	e.stopper.Disarm()
	return results[0]
}

// TotalNodes sums the node counts of every worker from the most recent
// search.
func (e *Engine) TotalNodes() uint64 {
	var total uint64
	for _, w := range e.workers {
		total += w.Nodes()
	}
	return total
}

// Evaluate returns the static NNUE evaluation of pos, from the
// perspective of the side to move, using a scratch accumulator.
func (e *Engine) Evaluate(pos *board.Position) int {
	ev := nnue.NewEvaluatorWithNetwork(e.net)
	ev.Refresh(pos)
	return ev.Evaluate(pos)
}

// Perft counts leaf nodes at depth for move-generator verification.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return pos.Perft(depth)
}
