package entity

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/c6online/connect6-backend/internal/apperror"
)

// WinLength - the number of stones in a row needed to win.
const WinLength = 6

// Row - a contiguous row of stones on the board.
type Row struct {
	// Start - the starting position of the row.
	Start Point
	// End - the ending position of the row.
	End Point
}

// TurnAt - returns the stone to play at the given move index.
func TurnAt(index int) Stone {
	if index%2 == 0 {
		return StoneBlack
	}
	return StoneWhite
}

// Record - a Connect6 game record on an unbounded board.
//
// The occupancy map is always exactly the placement effect of the moves
// before the cursor; moves at or after the cursor are the redoable future.
type Record struct {
	occupancy map[Point]Stone
	moves     []Move
	index     int
}

// NewRecord - creates a new empty record.
func NewRecord() *Record {
	return &Record{
		occupancy: make(map[Point]Stone),
	}
}

// Clear - clears the record.
func (that *Record) Clear() {
	that.occupancy = make(map[Point]Stone)
	that.moves = nil
	that.index = 0
}

// Moves - returns all moves, in the past or in the future.
func (that *Record) Moves() []Move {
	return that.moves
}

// MoveIndex - returns the current move index.
func (that *Record) MoveIndex() int {
	return that.index
}

// PrevMove - returns the previous move, if any.
func (that *Record) PrevMove() (Move, bool) {
	if that.index == 0 {
		return Move{}, false
	}
	return that.moves[that.index-1], true
}

// NextMove - returns the next move, if any.
func (that *Record) NextMove() (Move, bool) {
	if that.index >= len(that.moves) {
		return Move{}, false
	}
	return that.moves[that.index], true
}

// HasPast - tests if there is any move in the past.
func (that *Record) HasPast() bool {
	return that.index > 0
}

// HasFuture - tests if there is any move in the future.
func (that *Record) HasFuture() bool {
	return that.index < len(that.moves)
}

// IsEnded - tests if the game is ended.
func (that *Record) IsEnded() bool {
	prev, ok := that.PrevMove()
	return ok && prev.IsEnding()
}

// Turn - returns the current stone to play.
func (that *Record) Turn() Stone {
	return TurnAt(that.index)
}

// StoneAt - returns the stone at the given position, or StoneNone.
func (that *Record) StoneAt(p Point) Stone {
	return that.occupancy[p]
}

// MakeMove - makes a move, clearing moves in the future.
func (that *Record) MakeMove(mov Move) error {
	if that.IsEnded() {
		return apperror.ErrGameEnded
	}

	switch mov.Kind {
	case MovePlace:
		if that.index == 0 && mov.Double {
			return apperror.ErrDoubleOpening
		}
		if mov.Double && mov.Second == mov.First {
			return apperror.ErrPointOccupied
		}
		if _, ok := that.occupancy[mov.First]; ok {
			return apperror.ErrPointOccupied
		}
		if mov.Double {
			if _, ok := that.occupancy[mov.Second]; ok {
				return apperror.ErrPointOccupied
			}
		}

		stone := that.Turn()
		that.occupancy[mov.First] = stone
		if mov.Double {
			that.occupancy[mov.Second] = stone
		}
	case MoveWin:
		if _, ok := that.FindWinRow(mov.First); !ok {
			return apperror.ErrNoWinningRow
		}
	}

	that.moves = append(that.moves[:that.index], mov)
	that.index++
	return nil
}

// UndoMove - undoes the previous move, if any.
func (that *Record) UndoMove() (Move, error) {
	prev, ok := that.PrevMove()
	if !ok {
		return Move{}, apperror.ErrNothingToUndo
	}
	that.index--

	if prev.Kind == MovePlace {
		delete(that.occupancy, prev.First)
		if prev.Double {
			delete(that.occupancy, prev.Second)
		}
	}
	return prev, nil
}

// RedoMove - redoes the next move, if any.
func (that *Record) RedoMove() (Move, error) {
	next, ok := that.NextMove()
	if !ok {
		return Move{}, apperror.ErrNothingToRedo
	}

	if next.Kind == MovePlace {
		stone := that.Turn()
		that.occupancy[next.First] = stone
		if next.Double {
			that.occupancy[next.Second] = stone
		}
	}
	that.index++
	return next, nil
}

// Jump - jumps to the given move index by undoing or redoing moves.
func (that *Record) Jump(index int) error {
	if index < 0 || index > len(that.moves) {
		return apperror.ErrIndexOutOfRange
	}
	for that.index > index {
		if _, err := that.UndoMove(); err != nil {
			return err
		}
	}
	for that.index < index {
		if _, err := that.RedoMove(); err != nil {
			return err
		}
	}
	return nil
}

// ScanRow - scans the row through a position in both directions of an axis,
// returning the row and its length.
func (that *Record) ScanRow(pos Point, axis Axis) (Row, int) {
	stone := that.StoneAt(pos)
	if stone == StoneNone {
		return Row{Start: pos, End: pos}, 0
	}

	length := 1
	scan := func(forward bool) Point {
		cur := pos
		for {
			next, ok := cur.Adjacent(axis, forward)
			if !ok || that.StoneAt(next) != stone {
				return cur
			}
			length++
			cur = next
		}
	}

	start := scan(false)
	end := scan(true)
	return Row{Start: start, End: end}, length
}

// FindWinRow - searches for a winning row through a position. The first
// axis with a qualifying run wins; the longest row is not sought.
func (that *Record) FindWinRow(pos Point) (Row, bool) {
	if that.StoneAt(pos) == StoneNone {
		return Row{}, false
	}
	for _, axis := range Axes {
		row, length := that.ScanRow(pos, axis)
		if length >= WinLength {
			return row, true
		}
	}
	return Row{}, false
}

// Append - appends the byte encoding of the record to a buffer.
//
// If all, includes every move prefixed with the current move index;
// otherwise only the moves before the cursor are encoded.
func (that *Record) Append(buf []byte, all bool) []byte {
	end := that.index
	if all {
		buf = binary.AppendUvarint(buf, uint64(that.index))
		end = len(that.moves)
	}
	for i := 0; i < end; i++ {
		buf = that.moves[i].Append(buf, i == 0)
	}
	return buf
}

// DecodeRecord - decodes a record from a reader, consuming it entirely.
//
// Moves are replayed through MakeMove, so any move the validator rejects
// fails the whole decode.
func DecodeRecord(r *bytes.Reader, all bool) (*Record, error) {
	rec := NewRecord()

	index := -1
	if all {
		n, err := readUvarint32(r)
		if err != nil {
			return nil, err
		}
		index = int(n)
	}

	for r.Len() > 0 {
		mov, err := DecodeMove(r, !rec.HasPast())
		if err != nil {
			return nil, err
		}
		if err := rec.MakeMove(mov); err != nil {
			return nil, fmt.Errorf("replaying move: %w", err)
		}
	}

	if all {
		if err := rec.Jump(index); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// MarshalJSON - encodes the record as a base64 string of its full encoding.
func (that *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(that.Append(nil, true))
}

// UnmarshalJSON - decodes the record from a base64 string of its full encoding.
func (that *Record) UnmarshalJSON(data []byte) error {
	var buf []byte
	if err := json.Unmarshal(data, &buf); err != nil {
		return fmt.Errorf("failed to unmarshal record bytes: %w", err)
	}

	rec, err := DecodeRecord(bytes.NewReader(buf), true)
	if err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}

	*that = *rec
	return nil
}
