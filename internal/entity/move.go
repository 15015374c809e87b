package entity

import (
	"bytes"
	"encoding/binary"

	"github.com/c6online/connect6-backend/internal/apperror"
)

// Stone - a stone on the board, either black or white.
type Stone uint8

const (
	StoneNone  Stone = 0
	StoneBlack Stone = 1
	StoneWhite Stone = 2
)

// StoneFromByte - creates a stone from a byte.
func StoneFromByte(n byte) (Stone, error) {
	switch Stone(n) {
	case StoneBlack, StoneWhite:
		return Stone(n), nil
	default:
		return StoneNone, apperror.ErrMalformedData
	}
}

// Opposite - returns the opposite stone.
func (that Stone) Opposite() Stone {
	switch that {
	case StoneBlack:
		return StoneWhite
	case StoneWhite:
		return StoneBlack
	default:
		return StoneNone
	}
}

// moveStoneOffset - added to a placed point's index before varint encoding,
// freeing the low integer range for move tags. Allows room for extension.
const moveStoneOffset = 7

const (
	moveTagPass   = 0
	moveTagWin    = 1
	moveTagDraw   = 2
	moveTagResign = 3
)

// MoveKind - discriminates the Move sum type.
type MoveKind uint8

const (
	// MovePlace - one or two stones placed on the board by the current player.
	MovePlace MoveKind = iota
	// MovePass - a pass made by the current player.
	MovePass
	// MoveWin - a winning row at the given position claimed by any player.
	MoveWin
	// MoveDraw - a draw agreed by both players.
	MoveDraw
	// MoveResign - a resignation indicated by the player with the given stone.
	MoveResign
)

// Move - a move made by one player or both players.
type Move struct {
	Kind MoveKind
	// First - the first placed stone for MovePlace, or the claimed
	// position for MoveWin.
	First Point
	// Second - the second placed stone of a double placement.
	Second Point
	// Double - whether Second is set.
	Double bool
	// Stone - the resigning stone for MoveResign.
	Stone Stone
}

// NewPlace - creates a single-stone placement.
func NewPlace(p Point) Move {
	return Move{Kind: MovePlace, First: p}
}

// NewDoublePlace - creates a two-stone placement.
func NewDoublePlace(p1, p2 Point) Move {
	return Move{Kind: MovePlace, First: p1, Second: p2, Double: true}
}

// NewPass - creates a pass.
func NewPass() Move {
	return Move{Kind: MovePass}
}

// NewWin - creates a win claim through the given point.
func NewWin(p Point) Move {
	return Move{Kind: MoveWin, First: p}
}

// NewDraw - creates an agreed draw.
func NewDraw() Move {
	return Move{Kind: MoveDraw}
}

// NewResign - creates a resignation by the given stone.
func NewResign(stone Stone) Move {
	return Move{Kind: MoveResign, Stone: stone}
}

// IsEnding - tests if the move is an ending move.
func (that Move) IsEnding() bool {
	switch that.Kind {
	case MoveWin, MoveDraw, MoveResign:
		return true
	default:
		return false
	}
}

// Equal - tests two moves for equality. The stones of a double
// placement are unordered.
func (that Move) Equal(other Move) bool {
	if that.Kind == MovePlace && other.Kind == MovePlace && that.Double && other.Double {
		return (that.First == other.First && that.Second == other.Second) ||
			(that.First == other.Second && that.Second == other.First)
	}
	return that == other
}

// Append - appends the byte encoding of the move to a buffer.
//
// If compact, omits the pass terminator after a single-stone placement.
func (that Move) Append(buf []byte, compact bool) []byte {
	switch that.Kind {
	case MovePlace:
		buf = binary.AppendUvarint(buf, uint64(that.First.Index())+moveStoneOffset)
		if that.Double {
			buf = binary.AppendUvarint(buf, uint64(that.Second.Index())+moveStoneOffset)
		} else if !compact {
			buf = append(buf, moveTagPass)
		}
	case MovePass:
		buf = append(buf, moveTagPass)
	case MoveWin:
		buf = append(buf, moveTagWin)
		buf = AppendPoint(buf, that.First)
	case MoveDraw:
		buf = append(buf, moveTagDraw)
	case MoveResign:
		buf = append(buf, moveTagResign)
		buf = append(buf, byte(that.Stone))
	}
	return buf
}

// readMoveWord - reads one word of a move encoding: a move tag, or a
// point index shifted up by moveStoneOffset. The shifted range tops out
// above uint32 max, so the word is bounded separately from a raw point.
func readMoveWord(r *bytes.Reader) (uint64, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, apperror.ErrTruncatedData
	}
	if n > 0xffffffff+moveStoneOffset {
		return 0, apperror.ErrMalformedData
	}
	return n, nil
}

// DecodeMove - decodes a move from a reader.
//
// A single-stone placement is accepted eagerly when decoding the first
// move of a record, or when the buffer is exhausted.
func DecodeMove(r *bytes.Reader, first bool) (Move, error) {
	x, err := readMoveWord(r)
	if err != nil {
		return Move{}, err
	}

	if x >= moveStoneOffset {
		fst := PointFromIndex(uint32(x - moveStoneOffset))
		if first || r.Len() == 0 {
			return NewPlace(fst), nil
		}

		x, err = readMoveWord(r)
		if err != nil {
			return Move{}, err
		}
		if x >= moveStoneOffset {
			return NewDoublePlace(fst, PointFromIndex(uint32(x-moveStoneOffset))), nil
		}
		if x != moveTagPass {
			return Move{}, apperror.ErrMalformedData
		}
		return NewPlace(fst), nil
	}

	switch x {
	case moveTagPass:
		return NewPass(), nil
	case moveTagWin:
		p, err := DecodePoint(r)
		if err != nil {
			return Move{}, err
		}
		return NewWin(p), nil
	case moveTagDraw:
		return NewDraw(), nil
	case moveTagResign:
		b, err := r.ReadByte()
		if err != nil {
			return Move{}, apperror.ErrTruncatedData
		}
		stone, err := StoneFromByte(b)
		if err != nil {
			return Move{}, err
		}
		return NewResign(stone), nil
	default:
		return Move{}, apperror.ErrMalformedData
	}
}
