package nnue

import "github.com/rwbc/cindergo/internal/board"

// PieceIndex maps (PieceType, Color) to a 0-9 index for the HalfKP feature
// scheme. White non-king roles are 0-4, black are 5-9; kings are never
// features.
func PieceIndex(pt board.PieceType, c board.Color) int {
	if pt == board.King || pt > board.Queen {
		return -1
	}
	base := int(pt)
	if c == board.Black {
		base += 5
	}
	return base
}

// FeatureIndex computes the feature index of a non-king piece from a given
// perspective. Black's perspective mirrors both the king square and the
// piece square vertically and swaps the piece's color, so that Black "sees"
// the board the same way White does from its own side.
func FeatureIndex(perspective board.Color, kingSquare board.Square,
	pieceType board.PieceType, pieceColor board.Color, pieceSquare board.Square) int {

	kingSq := int(kingSquare)
	pieceSq := int(pieceSquare)
	pc := pieceColor

	if perspective == board.Black {
		kingSq = int(kingSquare.Mirror())
		pieceSq = int(pieceSquare.Mirror())
		pc = pieceColor.Other()
	}

	pi := PieceIndex(pieceType, pc)
	if pi < 0 {
		return -1
	}

	return kingSq*(NumPieceTypes*NumPieceSquares) + pi*NumPieceSquares + pieceSq
}

// GetActiveFeatures returns every active feature index for both
// perspectives of pos, used for a from-scratch accumulator refresh.
func GetActiveFeatures(pos *board.Position) (white, black []int) {
	white = make([]int, 0, 32)
	black = make([]int, 0, 32)

	whiteKingSq := pos.KingSquare[board.White]
	blackKingSq := pos.KingSquare[board.Black]

	for color := board.White; color <= board.Black; color++ {
		for pt := board.Pawn; pt < board.King; pt++ {
			pieces := pos.Pieces[color][pt]
			for pieces != 0 {
				sq := pieces.PopLSB()

				if idx := FeatureIndex(board.White, whiteKingSq, pt, color, sq); idx >= 0 {
					white = append(white, idx)
				}
				if idx := FeatureIndex(board.Black, blackKingSq, pt, color, sq); idx >= 0 {
					black = append(black, idx)
				}
			}
		}
	}
	return white, black
}

// GetChangedFeatures returns the feature indices added/removed by playing m
// (already applied to pos) for both perspectives, the symmetric difference
// the incremental accumulator update needs. Callers must have already
// excluded king moves, which force a full refresh instead.
func GetChangedFeatures(pos *board.Position, m board.Move, captured board.Piece) (
	whiteAdd, whiteRem, blackAdd, blackRem []int) {

	whiteKingSq := pos.KingSquare[board.White]
	blackKingSq := pos.KingSquare[board.Black]

	from := m.From()
	to := m.To()
	movedPiece := pos.PieceAt(to)
	if movedPiece == board.NoPiece {
		return
	}

	movingPT := movedPiece.Type()
	movingColor := movedPiece.Color()
	if movingPT == board.King {
		return
	}

	if idx := FeatureIndex(board.White, whiteKingSq, movingPT, movingColor, from); idx >= 0 {
		whiteRem = append(whiteRem, idx)
	}
	if idx := FeatureIndex(board.Black, blackKingSq, movingPT, movingColor, from); idx >= 0 {
		blackRem = append(blackRem, idx)
	}

	addPT := movingPT
	if m.IsPromotion() {
		addPT = m.Promotion()
	}

	if idx := FeatureIndex(board.White, whiteKingSq, addPT, movingColor, to); idx >= 0 {
		whiteAdd = append(whiteAdd, idx)
	}
	if idx := FeatureIndex(board.Black, blackKingSq, addPT, movingColor, to); idx >= 0 {
		blackAdd = append(blackAdd, idx)
	}

	if captured != board.NoPiece && captured.Type() != board.King {
		capturedPT := captured.Type()
		capturedColor := captured.Color()
		capturedSq := to
		if m.IsEnPassant() {
			if movingColor == board.White {
				capturedSq = to - 8
			} else {
				capturedSq = to + 8
			}
		}

		if idx := FeatureIndex(board.White, whiteKingSq, capturedPT, capturedColor, capturedSq); idx >= 0 {
			whiteRem = append(whiteRem, idx)
		}
		if idx := FeatureIndex(board.Black, blackKingSq, capturedPT, capturedColor, capturedSq); idx >= 0 {
			blackRem = append(blackRem, idx)
		}
	}

	return
}

// PhaseBucket derives the game-phase bucket in [0,MATERIAL) from the count
// of non-king pieces on the board.
func PhaseBucket(pos *board.Position) int {
	total := 0
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt < board.King; pt++ {
			total += pos.Pieces[c][pt].PopCount()
		}
	}
	bucket := total / 4
	if bucket >= MATERIAL {
		bucket = MATERIAL - 1
	}
	return bucket
}
