package protocol

import (
	"bytes"

	"github.com/c6online/connect6-backend/internal/apperror"
	"github.com/c6online/connect6-backend/internal/entity"
)

// Message discriminants. Values are reserved with gaps for extension.
const (
	// Client messages.
	msgStart = 0
	msgJoin  = 1
	// Server messages.
	msgStarted = 2
	msgRecord  = 3
	// Common messages.
	msgMove    = 4
	msgRetract = 5
	msgRequest = 6
	// Client play messages.
	msgPlace    = 8
	msgPass     = 9
	msgClaimWin = 10
	msgResign   = 11
)

// ClientKind - discriminates the ClientMessage sum type.
type ClientKind uint8

const (
	// ClientStart - starts a new game, or authenticates on a joined one.
	ClientStart ClientKind = iota
	// ClientJoin - joins an existing game.
	ClientJoin
	// ClientPlace - places one or two stones.
	ClientPlace
	// ClientPass - passes the turn.
	ClientPass
	// ClientClaimWin - claims a winning row through a point.
	ClientClaimWin
	// ClientResign - resigns the game.
	ClientResign
	// ClientRequest - raises or answers a two-phase request.
	ClientRequest
)

// ClientMessage - a decoded client frame.
type ClientMessage struct {
	Kind ClientKind
	// Passcode - the raw passcode, for ClientStart.
	Passcode []byte
	// GameID - the game to join, for ClientJoin.
	GameID GameID
	// First, Second, Double - the placement, for ClientPlace, or the
	// claimed position, for ClientClaimWin.
	First  entity.Point
	Second entity.Point
	Double bool
	// Request - the request kind, for ClientRequest.
	Request entity.RequestKind
}

// IsPlay - tests if the message maps to a play action.
func (that ClientMessage) IsPlay() bool {
	switch that.Kind {
	case ClientPlace, ClientPass, ClientClaimWin, ClientResign, ClientRequest:
		return true
	default:
		return false
	}
}

// Action - builds the play action the message stands for, on behalf of
// the given stone.
func (that ClientMessage) Action(stone entity.Stone) entity.Action {
	switch that.Kind {
	case ClientPlace:
		if that.Double {
			return entity.Action{Move: entity.NewDoublePlace(that.First, that.Second)}
		}
		return entity.Action{Move: entity.NewPlace(that.First)}
	case ClientPass:
		return entity.Action{Move: entity.NewPass()}
	case ClientClaimWin:
		return entity.Action{Move: entity.NewWin(that.First)}
	case ClientResign:
		return entity.Action{Move: entity.NewResign(stone)}
	default:
		return entity.Action{Request: that.Request}
	}
}

// DecodeClientMessage - decodes one client frame.
//
// The payload must consume the frame exactly; trailing or missing bytes
// fail the decode.
func DecodeClientMessage(frame []byte) (ClientMessage, error) {
	if len(frame) == 0 {
		return ClientMessage{}, apperror.ErrMalformedData
	}

	payload := frame[1:]
	switch frame[0] {
	case msgStart:
		if len(payload) == 0 {
			return ClientMessage{}, apperror.ErrMalformedData
		}
		return ClientMessage{Kind: ClientStart, Passcode: payload}, nil

	case msgJoin:
		id, err := ParseGameID(payload)
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Kind: ClientJoin, GameID: id}, nil

	case msgPlace:
		r := bytes.NewReader(payload)
		first, err := entity.DecodePoint(r)
		if err != nil {
			return ClientMessage{}, err
		}
		if r.Len() == 0 {
			return ClientMessage{Kind: ClientPlace, First: first}, nil
		}
		second, err := entity.DecodePoint(r)
		if err != nil {
			return ClientMessage{}, err
		}
		if r.Len() != 0 {
			return ClientMessage{}, apperror.ErrTrailingData
		}
		return ClientMessage{Kind: ClientPlace, First: first, Second: second, Double: true}, nil

	case msgPass:
		if len(payload) != 0 {
			return ClientMessage{}, apperror.ErrTrailingData
		}
		return ClientMessage{Kind: ClientPass}, nil

	case msgClaimWin:
		r := bytes.NewReader(payload)
		p, err := entity.DecodePoint(r)
		if err != nil {
			return ClientMessage{}, err
		}
		if r.Len() != 0 {
			return ClientMessage{}, apperror.ErrTrailingData
		}
		return ClientMessage{Kind: ClientClaimWin, First: p}, nil

	case msgResign:
		if len(payload) != 0 {
			return ClientMessage{}, apperror.ErrTrailingData
		}
		return ClientMessage{Kind: ClientResign}, nil

	case msgRequest:
		if len(payload) != 1 {
			return ClientMessage{}, apperror.ErrMalformedData
		}
		kind, ok := entity.RequestKindFromByte(payload[0])
		if !ok {
			return ClientMessage{}, apperror.ErrMalformedData
		}
		return ClientMessage{Kind: ClientRequest, Request: kind}, nil

	default:
		return ClientMessage{}, apperror.ErrMalformedData
	}
}

// StartedFrame - encodes a Started server frame. The game ID is
// appended only when a new game was created.
func StartedFrame(stone entity.Stone, newID GameID) []byte {
	buf := append(make([]byte, 0, 2+GameIDLength), msgStarted, byte(stone))
	if newID != "" {
		buf = append(buf, newID...)
	}
	return buf
}

// RecordFrame - encodes a full-record server frame.
func RecordFrame(rec *entity.Record) []byte {
	return rec.Append([]byte{msgRecord}, true)
}

// MoveFrame - encodes a single-move server frame.
func MoveFrame(mov entity.Move) []byte {
	return mov.Append([]byte{msgMove}, true)
}

// RetractFrame - encodes a retraction server frame.
func RetractFrame() []byte {
	return []byte{msgRetract}
}

// RequestFrame - encodes a pending-request server frame.
func RequestFrame(kind entity.RequestKind, stone entity.Stone) []byte {
	return []byte{msgRequest, byte(kind), byte(stone)}
}
