// Package uci implements the Universal Chess Interface protocol loop: it
// reads commands from stdin, drives an engine.Engine, and writes `info`/
// `bestmove` lines to stdout.
package uci

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rwbc/cindergo/internal/applog"
	"github.com/rwbc/cindergo/internal/board"
	"github.com/rwbc/cindergo/internal/engine"
)

var log = applog.Get("uci")

const (
	defaultHashMB = 64
	minHashMB     = 1
	maxHashMB     = 4096
	defaultThreads = 1
	maxThreads     = 512
)

// pendingOption is a setoption call received while a search is in flight;
// per the UCI contract such options are deferred until the search returns.
type pendingOption struct {
	name  string
	value string
}

// UCI drives one engine.Engine through the UCI text protocol over stdin/
// stdout. It is single-threaded and cooperative: the main loop interleaves
// reading stdin with awaiting the in-flight search goroutine.
type UCI struct {
	eng      *engine.Engine
	position *board.Position

	hashMB  int
	threads int

	searching     bool
	stopRequested atomic.Bool
	searchDone    chan struct{}

	pending []pendingOption

	out *bufio.Writer
}

// New creates a UCI handler bound to eng, starting at the standard position.
func New(eng *engine.Engine) *UCI {
	return &UCI{
		eng:      eng,
		position: board.NewPosition(),
		hashMB:   defaultHashMB,
		threads:  defaultThreads,
		out:      bufio.NewWriter(os.Stdout),
	}
}

// Run reads commands from stdin until `quit` or EOF.
func (u *UCI) Run() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "setoption":
			u.handleSetOption(args)
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "bench":
			u.handleBench(args)
		case "perft":
			u.handlePerft(args)
		case "eval":
			u.handleEval()
		case "d":
			fmt.Fprintln(os.Stderr, u.position.String())
		case "quit":
			u.handleStop()
			u.out.Flush()
			return
		default:
			log.Debugf("ignoring unknown command %q", cmd)
		}
	}
}

func (u *UCI) println(s string) {
	fmt.Fprintln(u.out, s)
	u.out.Flush()
}

// handleUCI announces identity and tunable options, per §6.
func (u *UCI) handleUCI() {
	u.println("id name CinderGo")
	u.println("id author rwbc")
	u.println(fmt.Sprintf("option name Hash type spin default %d min %d max %d", defaultHashMB, minHashMB, maxHashMB))
	u.println(fmt.Sprintf("option name Threads type spin default %d min 1 max %d", defaultThreads, maxThreads))
	u.println("uciok")
}

// handleNewGame resets the engine (clearing the TT) and the position to
// startpos, per the ucinewgame contract.
func (u *UCI) handleNewGame() {
	u.eng.NewGame()
	u.position = board.NewPosition()
}

// handleSetOption applies Hash/Threads, deferring to after the current
// search if one is in flight (the source leaves this unspecified; this
// implementation mandates deferral, per §9).
func (u *UCI) handleSetOption(args []string) {
	name, value, ok := parseNameValue(args)
	if !ok {
		return
	}
	if u.searching {
		u.pending = append(u.pending, pendingOption{name: name, value: value})
		return
	}
	u.applyOption(name, value)
}

func (u *UCI) applyOption(name, value string) {
	switch strings.ToLower(name) {
	case "hash":
		mb, err := strconv.Atoi(value)
		if err != nil || mb < minHashMB {
			return
		}
		if mb > maxHashMB {
			mb = maxHashMB
		}
		u.hashMB = mb
		u.eng.SetHash(mb)
	case "threads":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return
		}
		if n > maxThreads {
			n = maxThreads
		}
		u.threads = n
		u.eng.SetThreads(n)
	default:
		log.Debugf("ignoring unknown option %q", name)
	}
}

func parseNameValue(args []string) (name, value string, ok bool) {
	var name_, value_ []string
	mode := 0 // 0=none, 1=name, 2=value
	for _, a := range args {
		switch a {
		case "name":
			mode = 1
		case "value":
			mode = 2
		default:
			switch mode {
			case 1:
				name_ = append(name_, a)
			case 2:
				value_ = append(value_, a)
			}
		}
	}
	if len(name_) == 0 {
		return "", "", false
	}
	return strings.Join(name_, " "), strings.Join(value_, " "), true
}

// handlePosition sets up startpos or a FEN, then applies trailing moves.
// An invalid FEN or an invalid move in the move list ignores the entire
// command (leaving prior state intact), except that a partially-invalid
// move list keeps the moves already applied before the bad token — this
// preserves an observable quirk of the reference implementation (§9).
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	var pos *board.Position
	var rest []string

	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
		rest = args[1:]
	case "fen":
		fenEnd := len(args)
		for i := 1; i < len(args); i++ {
			if args[i] == "moves" {
				fenEnd = i
				break
			}
		}
		if fenEnd <= 1 {
			return
		}
		fenStr := strings.Join(args[1:fenEnd], " ")
		p, err := board.ParseFEN(fenStr)
		if err != nil {
			log.Warningf("invalid FEN %q: %v", fenStr, err)
			return
		}
		pos = p
		rest = args[fenEnd:]
	default:
		return
	}

	if len(rest) > 0 && rest[0] == "moves" {
		for _, tok := range rest[1:] {
			m := parseMove(pos, tok)
			if m == board.NoMove {
				break
			}
			pos.MakeMove(m)
		}
	}

	u.position = pos
}

// parseMove resolves a UCI move token (e2e4, e7e8q, …) against pos's legal
// moves; it returns board.NoMove if the token is malformed or matches no
// legal move.
func parseMove(pos *board.Position, tok string) board.Move {
	if len(tok) < 4 {
		return board.NoMove
	}
	from, err1 := board.ParseSquare(tok[0:2])
	to, err2 := board.ParseSquare(tok[2:4])
	if err1 != nil || err2 != nil {
		return board.NoMove
	}

	var promo board.PieceType
	hasPromo := len(tok) >= 5
	if hasPromo {
		switch tok[4] {
		case 'q':
			promo = board.Queen
		case 'r':
			promo = board.Rook
		case 'b':
			promo = board.Bishop
		case 'n':
			promo = board.Knight
		default:
			return board.NoMove
		}
	}

	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() != from || m.To() != to {
			continue
		}
		if m.IsPromotion() {
			if hasPromo && m.Promotion() == promo {
				return m
			}
			continue
		}
		if !hasPromo {
			return m
		}
	}
	return board.NoMove
}

// goOptions holds the parsed arguments of a `go` command.
type goOptions struct {
	depth     int
	nodes     uint64
	movetime  time.Duration
	wtime     time.Duration
	btime     time.Duration
	winc      time.Duration
	binc      time.Duration
	movesToGo int
	infinite  bool
}

func parseGoOptions(args []string) goOptions {
	var o goOptions
	atoi := func(i int) int {
		n, _ := strconv.Atoi(args[i])
		return n
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				o.depth = atoi(i + 1)
				i++
			}
		case "nodes":
			if i+1 < len(args) {
				n, _ := strconv.ParseUint(args[i+1], 10, 64)
				o.nodes = n
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				o.movetime = time.Duration(atoi(i+1)) * time.Millisecond
				i++
			}
		case "wtime":
			if i+1 < len(args) {
				o.wtime = time.Duration(atoi(i+1)) * time.Millisecond
				i++
			}
		case "btime":
			if i+1 < len(args) {
				o.btime = time.Duration(atoi(i+1)) * time.Millisecond
				i++
			}
		case "winc":
			if i+1 < len(args) {
				o.winc = time.Duration(atoi(i+1)) * time.Millisecond
				i++
			}
		case "binc":
			if i+1 < len(args) {
				o.binc = time.Duration(atoi(i+1)) * time.Millisecond
				i++
			}
		case "movestogo":
			if i+1 < len(args) {
				o.movesToGo = atoi(i + 1)
				i++
			}
		case "mate":
			if i+1 < len(args) {
				i++ // mate-distance search not implemented; token consumed only
			}
		case "infinite":
			o.infinite = true
		}
	}
	return o
}

// toLimits converts goOptions to engine.Limits, honoring the precedence
// side-clock > movetime > nodes > depth > infinite/none from §6.
func (u *UCI) toLimits(o goOptions) engine.Limits {
	ourTime, ourInc := o.wtime, o.winc
	if u.position.SideToMove == board.Black {
		ourTime, ourInc = o.btime, o.binc
	}

	switch {
	case ourTime > 0:
		return engine.Limits{
			Kind:        engine.LimitClock,
			RemainingMS: ourTime.Milliseconds(),
			IncrementMS: ourInc.Milliseconds(),
			MovesToGo:   o.movesToGo,
		}
	case o.movetime > 0:
		return engine.Limits{Kind: engine.LimitTime, TimeMS: o.movetime.Milliseconds()}
	case o.nodes > 0:
		return engine.Limits{Kind: engine.LimitNodes, Nodes: o.nodes}
	case o.depth > 0:
		return engine.Limits{Kind: engine.LimitDepth, Depth: o.depth}
	default:
		return engine.Limits{Kind: engine.LimitNone}
	}
}

// handleGo launches a search in the background; the UCI loop stays free to
// read `stop` while it runs. A new `go` while one is already in flight is
// undefined by the contract, so it is simply ignored here.
func (u *UCI) handleGo(args []string) {
	if u.searching {
		log.Warning("go received while a search is already running, ignoring")
		return
	}

	opts := parseGoOptions(args)
	limits := u.toLimits(opts)
	pos := u.position.Copy()

	u.searching = true
	u.stopRequested.Store(false)
	u.searchDone = make(chan struct{})

	go func() {
		defer close(u.searchDone)

		report := u.eng.Go(pos, limits, func(r engine.Report) {
			u.sendInfo(r)
		})

		u.searching = false
		for _, p := range u.pending {
			u.applyOption(p.name, p.value)
		}
		u.pending = nil

		best := report.BestMove()
		if best == board.NoMove {
			u.println("bestmove 0000")
			return
		}
		u.println("bestmove " + best.String())
	}()
}

// handleStop disarms the stopper and blocks until the in-flight search
// finishes, so that exactly one bestmove is emitted per go.
func (u *UCI) handleStop() {
	if !u.searching {
		return
	}
	u.stopRequested.Store(true)
	u.eng.Stop()
	<-u.searchDone
}

// sendInfo prints one `info` line summarizing a completed iteration.
func (u *UCI) sendInfo(r engine.Report) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d ", r.Depth)

	if r.Score > engine.MateScore-engine.MaxPly {
		mateIn := (engine.MateScore - r.Score + 1) / 2
		fmt.Fprintf(&sb, "score mate %d ", mateIn)
	} else if r.Score < -engine.MateScore+engine.MaxPly {
		mateIn := -(engine.MateScore + r.Score + 1) / 2
		fmt.Fprintf(&sb, "score mate %d ", mateIn)
	} else {
		fmt.Fprintf(&sb, "score cp %d ", r.Score)
	}

	fmt.Fprintf(&sb, "nodes %d ", u.eng.TotalNodes())
	if len(r.PV) > 0 {
		strs := make([]string, len(r.PV))
		for i, m := range r.PV {
			strs[i] = m.String()
		}
		fmt.Fprintf(&sb, "pv %s", strings.Join(strs, " "))
	}
	u.println(strings.TrimRight(sb.String(), " "))
}

// handleBench runs a single synchronous search to a fixed depth or node
// count and reports its throughput, per §6.
func (u *UCI) handleBench(args []string) {
	if len(args) < 2 {
		return
	}
	var limits engine.Limits
	switch args[0] {
	case "depth":
		d, err := strconv.Atoi(args[1])
		if err != nil {
			return
		}
		limits = engine.Limits{Kind: engine.LimitDepth, Depth: d}
	case "nodes":
		n, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return
		}
		limits = engine.Limits{Kind: engine.LimitNodes, Nodes: n}
	default:
		return
	}

	start := time.Now()
	report := u.eng.Go(u.position.Copy(), limits, nil)
	elapsed := time.Since(start)

	nodes := u.eng.TotalNodes()
	var nps uint64
	if elapsed > 0 {
		nps = uint64(float64(nodes) / elapsed.Seconds())
	}
	u.println(fmt.Sprintf("info time %d depth %d nodes %d nps %d", elapsed.Milliseconds(), report.Depth, nodes, nps))
}

// handlePerft counts leaf nodes at depth and reports throughput, per §6.
func (u *UCI) handlePerft(args []string) {
	if len(args) == 0 {
		return
	}
	depth, err := strconv.Atoi(args[0])
	if err != nil || depth < 0 {
		return
	}

	start := time.Now()
	nodes := u.eng.Perft(u.position, depth)
	elapsed := time.Since(start)

	var nps uint64
	if elapsed > 0 {
		nps = uint64(float64(nodes) / elapsed.Seconds())
	}
	u.println(fmt.Sprintf("info time %d nodes %d nps %d", elapsed.Milliseconds(), nodes, nps))
}

// handleEval reports the static NNUE evaluation of the current position
// from the side-to-move's perspective, per §6.
func (u *UCI) handleEval() {
	v := u.eng.Evaluate(u.position)
	u.println(fmt.Sprintf("info value %+d", v))
}
