package engine

import (
	"sync/atomic"

	"github.com/rwbc/cindergo/internal/board"
)

// Kind classifies the bound a transposition entry represents. The ordering
// Lower < Upper < Exact (at equal depth) is load-bearing: it is exactly the
// order the replacement policy in spec §4.5 / §8 property 7 uses.
type Kind uint8

const (
	Lower Kind = iota
	Upper
	Exact
)

const (
	sigBits   = 26
	bestBits  = 15
	scoreBits = 16
	depthBits = 5
	kindBits  = 2

	sigShift   = 64 - sigBits
	bestShift  = sigShift - bestBits
	scoreShift = bestShift - scoreBits
	depthShift = scoreShift - depthBits
	kindShift  = 0

	sigMask   = uint64(1)<<sigBits - 1
	bestMask  = uint64(1)<<bestBits - 1
	scoreMask = uint64(1)<<scoreBits - 1
	depthMask = uint64(1)<<depthBits - 1
	kindMask  = uint64(1)<<kindBits - 1

	// MaxTTDepth is the largest depth the 5-bit depth field can hold.
	MaxTTDepth = int(depthMask)
)

// Entry is a decoded transposition-table slot.
type Entry struct {
	Score int16
	Depth uint8
	Best  board.Move
	Kind  Kind
}

// rank orders entries by (depth, kind) for replacement decisions only,
// never for comparing entries from different positions.
func rank(depth uint8, kind Kind) int {
	return int(depth)*4 + int(kind)
}

// encode packs an entry plus its 26-bit signature into a 64-bit word.
// The all-zero word is reserved for "empty": Store never writes sig=0 with
// a zero entry in practice, and Probe treats a raw zero load as empty
// before even checking the signature.
func encode(sig uint32, e Entry) uint64 {
	var w uint64
	w |= (uint64(sig) & sigMask) << sigShift
	w |= (uint64(e.Best) & bestMask) << bestShift
	w |= (uint64(uint16(e.Score)) & scoreMask) << scoreShift
	w |= (uint64(e.Depth) & depthMask) << depthShift
	w |= (uint64(e.Kind) & kindMask) << kindShift
	return w
}

func decode(w uint64) (sig uint32, e Entry) {
	sig = uint32((w >> sigShift) & sigMask)
	e.Best = board.Move((w >> bestShift) & bestMask)
	e.Score = int16(uint16((w >> scoreShift) & scoreMask))
	e.Depth = uint8((w >> depthShift) & depthMask)
	e.Kind = Kind((w >> kindShift) & kindMask)
	return sig, e
}

// indexOf and signatureOf split a Zobrist hash into the slot index (low
// bits) and verification signature (high 26 bits), per spec §4.5.
func indexOf(h uint64, mask uint64) uint64 {
	return h & mask
}

func signatureOf(h uint64) uint32 {
	return uint32(h >> 38)
}

// TranspositionTable is a flat, lock-free array of 2^k packed 64-bit slots.
// Lifetime spans from construction through Clear (called on ucinewgame).
type TranspositionTable struct {
	slots []atomic.Uint64
	mask  uint64
}

// NewTranspositionTable selects k such that 2^k*8 <= sizeBytes and
// 2^(k+1)*8 > sizeBytes, floored at one slot, per spec §4.5's sizing rule.
func NewTranspositionTable(sizeBytes int) *TranspositionTable {
	if sizeBytes < 8 {
		sizeBytes = 8
	}
	numSlots := uint64(1)
	for (numSlots*2)*8 <= uint64(sizeBytes) {
		numSlots *= 2
	}
	return &TranspositionTable{
		slots: make([]atomic.Uint64, numSlots),
		mask:  numSlots - 1,
	}
}

// NewTranspositionTableMB is a convenience constructor matching the UCI
// Hash option, which is specified in mebibytes.
func NewTranspositionTableMB(sizeMB int) *TranspositionTable {
	return NewTranspositionTable(sizeMB * 1024 * 1024)
}

// Probe atomically loads the slot for h and returns the decoded entry iff
// its signature matches the high bits of h.
func (tt *TranspositionTable) Probe(h uint64) (Entry, bool) {
	w := tt.slots[indexOf(h, tt.mask)].Load()
	if w == 0 {
		return Entry{}, false
	}
	sig, e := decode(w)
	if sig != signatureOf(h) {
		return Entry{}, false
	}
	return e, true
}

// Store applies the replacement policy of spec §4.5: the existing entry is
// kept iff its (depth, kind) strictly exceeds the incoming one; a
// signature mismatch does NOT protect the existing entry from being
// overwritten. This matches original_source/lib/transposition/table.rs,
// whose `set` never re-checks the slot's signature against the new key
// before deciding whether to keep the old entry.
func (tt *TranspositionTable) Store(h uint64, e Entry) {
	idx := indexOf(h, tt.mask)
	slot := &tt.slots[idx]
	old := slot.Load()
	if old != 0 {
		_, oldEntry := decode(old)
		if rank(oldEntry.Depth, oldEntry.Kind) > rank(e.Depth, e.Kind) {
			return
		}
	}
	slot.Store(encode(signatureOf(h), e))
}

// Unset writes the empty encoding at h's slot.
func (tt *TranspositionTable) Unset(h uint64) {
	tt.slots[indexOf(h, tt.mask)].Store(0)
}

// Clear zeroes every slot.
func (tt *TranspositionTable) Clear() {
	for i := range tt.slots {
		tt.slots[i].Store(0)
	}
}

// Len returns the number of slots (always a power of two).
func (tt *TranspositionTable) Len() uint64 {
	return tt.mask + 1
}

// HashFull samples the first 1000 slots and returns parts-per-thousand
// occupied, matching the conventional UCI `info hashfull` metric.
func (tt *TranspositionTable) HashFull() int {
	sample := 1000
	if uint64(sample) > tt.Len() {
		sample = int(tt.Len())
	}
	used := 0
	for i := 0; i < sample; i++ {
		if tt.slots[i].Load() != 0 {
			used++
		}
	}
	return used * 1000 / sample
}

// IterPV follows TT best moves from start, playing each and re-probing,
// halting on an absent/mismatching entry or on the first repeated
// position, per spec §4.5.
func (tt *TranspositionTable) IterPV(start *board.Position, maxLen int) []board.Move {
	pv := make([]board.Move, 0, maxLen)
	pos := start.Copy()
	seen := map[uint64]bool{pos.Hash: true}

	for len(pv) < maxLen {
		e, ok := tt.Probe(pos.Hash)
		if !ok || e.Best == 0 {
			break
		}

		legal := false
		moves := pos.GenerateLegalMoves()
		for i := 0; i < moves.Len(); i++ {
			if moves.Get(i) == e.Best {
				legal = true
				break
			}
		}
		if !legal {
			break
		}

		pos.MakeMove(e.Best)
		pv = append(pv, e.Best)

		if seen[pos.Hash] {
			break
		}
		seen[pos.Hash] = true
	}
	return pv
}

// AdjustScoreFromTT converts a mate score stored relative to the TT node's
// own ply back to a score relative to the search root.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT converts a root-relative mate score into one relative to
// the storing node's ply, so that the same forced mate found at different
// depths from the root isn't conflated in the table.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
