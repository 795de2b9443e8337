package engine

import (
	"testing"

	"github.com/rwbc/cindergo/internal/board"
	"github.com/stretchr/testify/require"
)

func TestSearchBasic(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16, 1)

	report := eng.Go(pos, Limits{Kind: LimitDepth, Depth: 4}, nil)
	require.NotEqual(t, board.NoMove, report.BestMove())
	t.Logf("best move: %s depth: %d score: %d", report.BestMove(), report.Depth, report.Score)
}

func TestSearchRespectsDepthLimit(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16, 1)

	report := eng.Go(pos, Limits{Kind: LimitDepth, Depth: 3}, nil)
	require.LessOrEqual(t, report.Depth, 3)
}

func TestSearchNodeLimit(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16, 1)

	report := eng.Go(pos, Limits{Kind: LimitNodes, Nodes: 5000}, nil)
	require.NotEqual(t, board.NoMove, report.BestMove())
	require.Less(t, eng.TotalNodes(), uint64(200000))
}

// TestConcurrentSearch stresses the Lazy SMP worker pool to catch data
// races on the shared transposition table.
// Run with: go test -race -run TestConcurrentSearch ./internal/engine
func TestConcurrentSearch(t *testing.T) {
	eng := NewEngine(16, 4)

	positions := []string{
		board.StartFEN,
		"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3",
		"8/8/8/4k3/8/4K3/4P3/8 w - - 0 1",
	}

	for i, fen := range positions {
		pos, err := board.ParseFEN(fen)
		require.NoError(t, err)

		report := eng.Go(pos, Limits{Kind: LimitDepth, Depth: 5}, nil)
		if pos.GenerateLegalMoves().Len() > 0 {
			require.NotEqualf(t, board.NoMove, report.BestMove(), "position %d", i)
		}
	}
}

func TestStopReturnsLastCompletedIteration(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16, 1)

	seen := 0
	report := eng.Go(pos, Limits{Kind: LimitDepth, Depth: 6}, func(r Report) {
		seen++
		if seen == 2 {
			eng.Stop()
		}
	})
	require.GreaterOrEqual(t, report.Depth, 1)
}

func TestEvaluateStartposIsBalanced(t *testing.T) {
	eng := NewEngine(16, 1)
	pos := board.NewPosition()
	eval := eng.Evaluate(pos)
	require.InDelta(t, 0, eval, 50, "startpos should be roughly balanced")
}
