package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c6online/connect6-backend/internal/entity"
)

func TestParseGameID(t *testing.T) {
	t.Run("Accepts a fixed-length alphanumeric token", func(t *testing.T) {
		id, err := ParseGameID([]byte("AbCdEfGh42"))

		require.NoError(t, err)
		assert.Equal(t, GameID("AbCdEfGh42"), id)
	})

	t.Run("Rejects a wrong length", func(t *testing.T) {
		_, err := ParseGameID([]byte("short"))
		assert.Error(t, err)

		_, err = ParseGameID([]byte("waaaaaaaaaaaytoolong"))
		assert.Error(t, err)
	})

	t.Run("Rejects non-alphanumeric bytes", func(t *testing.T) {
		_, err := ParseGameID([]byte("AbCdEfGh4!"))
		assert.Error(t, err)
	})
}

func TestDecodeClientMessage(t *testing.T) {
	t.Run("Start carries the rest of the frame as the passcode", func(t *testing.T) {
		msg, err := DecodeClientMessage(append([]byte{0}, "open sesame"...))

		require.NoError(t, err)
		assert.Equal(t, ClientStart, msg.Kind)
		assert.Equal(t, []byte("open sesame"), msg.Passcode)
	})

	t.Run("Start with an empty passcode is malformed", func(t *testing.T) {
		_, err := DecodeClientMessage([]byte{0})
		assert.Error(t, err)
	})

	t.Run("Join carries a game ID", func(t *testing.T) {
		msg, err := DecodeClientMessage(append([]byte{1}, "AbCdEfGhIj"...))

		require.NoError(t, err)
		assert.Equal(t, ClientJoin, msg.Kind)
		assert.Equal(t, GameID("AbCdEfGhIj"), msg.GameID)
	})

	t.Run("Place decodes one stone", func(t *testing.T) {
		frame := entity.AppendPoint([]byte{8}, entity.NewPoint(3, -4))

		msg, err := DecodeClientMessage(frame)

		require.NoError(t, err)
		assert.Equal(t, ClientPlace, msg.Kind)
		assert.Equal(t, entity.NewPoint(3, -4), msg.First)
		assert.False(t, msg.Double)
	})

	t.Run("Place decodes two stones", func(t *testing.T) {
		frame := entity.AppendPoint([]byte{8}, entity.NewPoint(3, -4))
		frame = entity.AppendPoint(frame, entity.NewPoint(-1, 0))

		msg, err := DecodeClientMessage(frame)

		require.NoError(t, err)
		assert.Equal(t, ClientPlace, msg.Kind)
		assert.True(t, msg.Double)
		assert.Equal(t, entity.NewPoint(-1, 0), msg.Second)
	})

	t.Run("Place with trailing bytes is malformed", func(t *testing.T) {
		frame := entity.AppendPoint([]byte{8}, entity.NewPoint(3, -4))
		frame = entity.AppendPoint(frame, entity.NewPoint(-1, 0))
		frame = append(frame, 0)

		_, err := DecodeClientMessage(frame)

		assert.Error(t, err)
	})

	t.Run("Pass and Resign carry no payload", func(t *testing.T) {
		msg, err := DecodeClientMessage([]byte{9})
		require.NoError(t, err)
		assert.Equal(t, ClientPass, msg.Kind)

		msg, err = DecodeClientMessage([]byte{11})
		require.NoError(t, err)
		assert.Equal(t, ClientResign, msg.Kind)

		_, err = DecodeClientMessage([]byte{9, 0})
		assert.Error(t, err)
	})

	t.Run("ClaimWin carries exactly one point", func(t *testing.T) {
		frame := entity.AppendPoint([]byte{10}, entity.NewPoint(5, 5))

		msg, err := DecodeClientMessage(frame)

		require.NoError(t, err)
		assert.Equal(t, ClientClaimWin, msg.Kind)
		assert.Equal(t, entity.NewPoint(5, 5), msg.First)

		_, err = DecodeClientMessage(append(frame, 0))
		assert.Error(t, err)
	})

	t.Run("Request carries a known kind byte", func(t *testing.T) {
		msg, err := DecodeClientMessage([]byte{6, 1})
		require.NoError(t, err)
		assert.Equal(t, ClientRequest, msg.Kind)
		assert.Equal(t, entity.RequestDraw, msg.Request)

		_, err = DecodeClientMessage([]byte{6, 42})
		assert.Error(t, err)
	})

	t.Run("Empty frames and unknown discriminants fail", func(t *testing.T) {
		_, err := DecodeClientMessage(nil)
		assert.Error(t, err)

		_, err = DecodeClientMessage([]byte{7})
		assert.Error(t, err)

		_, err = DecodeClientMessage([]byte{200})
		assert.Error(t, err)
	})
}

func TestClientMessage_Action(t *testing.T) {
	t.Run("Resign is stamped with the acting stone", func(t *testing.T) {
		msg := ClientMessage{Kind: ClientResign}

		act := msg.Action(entity.StoneWhite)

		assert.True(t, act.Move.Equal(entity.NewResign(entity.StoneWhite)))
	})

	t.Run("Placements keep their points", func(t *testing.T) {
		msg := ClientMessage{
			Kind:   ClientPlace,
			First:  entity.NewPoint(1, 2),
			Second: entity.NewPoint(3, 4),
			Double: true,
		}

		act := msg.Action(entity.StoneBlack)

		assert.True(t, act.Move.Equal(entity.NewDoublePlace(entity.NewPoint(1, 2), entity.NewPoint(3, 4))))
	})
}

func TestServerFrames(t *testing.T) {
	t.Run("Started appends the game ID only when one was created", func(t *testing.T) {
		frame := StartedFrame(entity.StoneBlack, "AbCdEfGhIj")
		assert.Equal(t, append([]byte{2, 1}, "AbCdEfGhIj"...), frame)

		frame = StartedFrame(entity.StoneWhite, "")
		assert.Equal(t, []byte{2, 2}, frame)
	})

	t.Run("Record frames round-trip through the full encoding", func(t *testing.T) {
		rec := entity.NewRecord()
		require.NoError(t, rec.MakeMove(entity.NewPlace(entity.NewPoint(0, 0))))
		require.NoError(t, rec.MakeMove(entity.NewDoublePlace(entity.NewPoint(1, 0), entity.NewPoint(2, 0))))

		frame := RecordFrame(rec)

		require.Equal(t, byte(3), frame[0])
		got, err := entity.DecodeRecord(bytes.NewReader(frame[1:]), true)
		require.NoError(t, err)
		assert.Equal(t, rec.Moves(), got.Moves())
		assert.Equal(t, rec.MoveIndex(), got.MoveIndex())
	})

	t.Run("Move frames use the eager single-stone form", func(t *testing.T) {
		frame := MoveFrame(entity.NewPlace(entity.NewPoint(7, 7)))

		require.Equal(t, byte(4), frame[0])
		got, err := entity.DecodeMove(bytes.NewReader(frame[1:]), false)
		require.NoError(t, err)
		assert.True(t, got.Equal(entity.NewPlace(entity.NewPoint(7, 7))))
	})

	t.Run("Retract and Request frames are fixed", func(t *testing.T) {
		assert.Equal(t, []byte{5}, RetractFrame())
		assert.Equal(t, []byte{6, 2, 1}, RequestFrame(entity.RequestRetract, entity.StoneBlack))
	})
}
