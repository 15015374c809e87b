package entity

import (
	"bytes"
	"encoding/binary"

	"github.com/c6online/connect6-backend/internal/apperror"
)

// Axis - an axis on the board.
type Axis uint8

const (
	// AxisHorizontal - the horizontal axis, with a unit vector of (1, 0).
	AxisHorizontal Axis = iota
	// AxisDiagonal - the diagonal axis, with a unit vector of (1, 1).
	AxisDiagonal
	// AxisVertical - the vertical axis, with a unit vector of (0, 1).
	AxisVertical
	// AxisAntiDiagonal - the anti-diagonal axis, with a unit vector of (1, -1).
	AxisAntiDiagonal
)

// Axes - all axes on the board.
var Axes = [4]Axis{AxisHorizontal, AxisDiagonal, AxisVertical, AxisAntiDiagonal}

var unitVectors = [4][2]int16{{1, 0}, {1, 1}, {0, 1}, {1, -1}}

// UnitVector - returns the unit vector in the forward direction of the axis.
func (that Axis) UnitVector() (int16, int16) {
	v := unitVectors[that]
	return v[0], v[1]
}

// Point - a 2D point with integer coordinates on an unbounded board.
type Point struct {
	X int16
	Y int16
}

// NewPoint - creates a point with the given coordinates.
func NewPoint(x, y int16) Point {
	return Point{X: x, Y: y}
}

// zigzagEncode - maps an integer to a natural number.
func zigzagEncode(n int16) uint16 {
	return uint16(n<<1) ^ uint16(n>>15)
}

// zigzagDecode - maps a natural number to an integer (undoes zigzagEncode).
func zigzagDecode(n uint16) int16 {
	return int16(n>>1) ^ -int16(n&1)
}

// elegantPair - maps two natural numbers to one.
//
// The pairing of two uint16 values maxes out at exactly 1<<32-1,
// so the result always fits in a uint32.
func elegantPair(x, y uint16) uint32 {
	xw, yw := uint32(x), uint32(y)
	if xw < yw {
		return yw*yw + xw
	}
	return xw*xw + xw + yw
}

// isqrt - computes the integer square root by Newton iteration.
func isqrt(s uint64) uint64 {
	if s <= 1 {
		return s
	}
	x0 := s >> 1
	x1 := (x0 + s/x0) >> 1
	for x1 < x0 {
		x0 = x1
		x1 = (x0 + s/x0) >> 1
	}
	return x0
}

// elegantUnpair - maps one natural number to two (undoes elegantPair).
func elegantUnpair(z uint32) (uint16, uint16) {
	zw := uint64(z)
	s := isqrt(zw)
	t := zw - s*s
	if t < s {
		return uint16(t), uint16(s)
	}
	return uint16(s), uint16(t - s)
}

// Index - maps the point to a natural number.
//
// Points near the origin receive small indices, which encode as
// short varints.
func (that Point) Index() uint32 {
	return elegantPair(zigzagEncode(that.X), zigzagEncode(that.Y))
}

// PointFromIndex - maps a natural number to a point (undoes Index).
func PointFromIndex(i uint32) Point {
	x, y := elegantUnpair(i)
	return NewPoint(zigzagDecode(x), zigzagDecode(y))
}

// Adjacent - returns the adjacent point along the axis, stepping forward
// or backward, and whether the step stayed within the coordinate range.
func (that Point) Adjacent(axis Axis, forward bool) (Point, bool) {
	dx, dy := axis.UnitVector()
	if !forward {
		dx, dy = -dx, -dy
	}

	x := int32(that.X) + int32(dx)
	y := int32(that.Y) + int32(dy)
	if x < -0x8000 || x > 0x7fff || y < -0x8000 || y > 0x7fff {
		return Point{}, false
	}

	return NewPoint(int16(x), int16(y)), true
}

// AppendPoint - appends the varint encoding of the point to a buffer.
func AppendPoint(buf []byte, p Point) []byte {
	return binary.AppendUvarint(buf, uint64(p.Index()))
}

// DecodePoint - decodes a point from a reader.
func DecodePoint(r *bytes.Reader) (Point, error) {
	i, err := readUvarint32(r)
	if err != nil {
		return Point{}, err
	}
	return PointFromIndex(i), nil
}

// readUvarint32 - reads an unsigned varint that must fit in a uint32.
func readUvarint32(r *bytes.Reader) (uint32, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, apperror.ErrTruncatedData
	}
	if n > 0xffffffff {
		return 0, apperror.ErrMalformedData
	}
	return uint32(n), nil
}
