package entity

import "bytes"

// RequestKind - a kind of two-phase request negotiated between the players.
type RequestKind uint8

const (
	// RequestDraw - ends the game in a draw.
	RequestDraw RequestKind = 1
	// RequestRetract - retracts the previous move.
	RequestRetract RequestKind = 2
	// RequestReset - resets the game.
	RequestReset RequestKind = 3
)

// RequestKindFromByte - creates a request kind from a byte.
func RequestKindFromByte(n byte) (RequestKind, bool) {
	switch RequestKind(n) {
	case RequestDraw, RequestRetract, RequestReset:
		return RequestKind(n), true
	default:
		return 0, false
	}
}

// Action - an action played by an authenticated player: a move attempt
// when Request is zero, or a two-phase request otherwise.
type Action struct {
	Move    Move
	Request RequestKind
}

// PlayEffect - what a played action did to the game state.
type PlayEffect uint8

const (
	// EffectNone - the action was silently dropped.
	EffectNone PlayEffect = iota
	// EffectMove - a move was applied to the record.
	EffectMove
	// EffectRetract - the previous move was undone.
	EffectRetract
	// EffectReset - the record was cleared.
	EffectReset
	// EffectRequest - a request is now pending, awaiting the opponent.
	EffectRequest
)

// PlayResult - the outcome of playing an action.
type PlayResult struct {
	Effect PlayEffect
	// Move - the applied move, for EffectMove.
	Move Move
	// Request - the raised request kind, for EffectRequest.
	Request RequestKind
}

// PendingRequest - a request raised by one stone, awaiting the opponent.
type PendingRequest struct {
	Kind  RequestKind
	Stone Stone
}

// GameState - the authoritative state of one game: the record, the two
// passcode slots and the pending request slots.
type GameState struct {
	Record *Record `json:"record"`

	// Passcode digests, assigned to the stones first come, first served.
	PassBlack []byte `json:"passcode_black,omitempty"`
	PassWhite []byte `json:"passcode_white,omitempty"`

	// Pending request slots, each holding the requesting stone or StoneNone.
	PendingDraw    Stone `json:"pending_draw,omitempty"`
	PendingRetract Stone `json:"pending_retract,omitempty"`
	PendingReset   Stone `json:"pending_reset,omitempty"`
}

// NewGameState - creates the state of a fresh game.
func NewGameState() *GameState {
	return &GameState{Record: NewRecord()}
}

// Authenticate - binds or matches a passcode digest to a stone slot.
//
// The first unseen digest claims the black slot; a digest matching a bound
// slot reclaims that slot; the next unseen digest claims the white slot.
// Returns StoneNone if both slots are bound and neither matches.
func (that *GameState) Authenticate(digest []byte) Stone {
	if that.PassBlack == nil {
		that.PassBlack = digest
		return StoneBlack
	}
	if bytes.Equal(digest, that.PassBlack) {
		return StoneBlack
	}
	if that.PassWhite == nil {
		that.PassWhite = digest
		return StoneWhite
	}
	if bytes.Equal(digest, that.PassWhite) {
		return StoneWhite
	}
	return StoneNone
}

// PendingRequests - returns the currently pending requests, if any.
func (that *GameState) PendingRequests() []PendingRequest {
	var reqs []PendingRequest
	for _, kind := range [3]RequestKind{RequestDraw, RequestRetract, RequestReset} {
		if stone := *that.pendingSlot(kind); stone != StoneNone {
			reqs = append(reqs, PendingRequest{Kind: kind, Stone: stone})
		}
	}
	return reqs
}

func (that *GameState) pendingSlot(kind RequestKind) *Stone {
	switch kind {
	case RequestDraw:
		return &that.PendingDraw
	case RequestRetract:
		return &that.PendingRetract
	default:
		return &that.PendingReset
	}
}

func (that *GameState) clearPending() {
	that.PendingDraw = StoneNone
	that.PendingRetract = StoneNone
	that.PendingReset = StoneNone
}

// Play - plays an action for the given stone.
//
// Placements and passes out of turn, moves the record rejects, and
// duplicate requests are all silently dropped.
func (that *GameState) Play(stone Stone, act Action) PlayResult {
	if act.Request != 0 {
		return that.playRequest(stone, act.Request)
	}

	mov := act.Move
	if mov.Kind == MovePlace || mov.Kind == MovePass {
		if that.Record.Turn() != stone {
			return PlayResult{Effect: EffectNone}
		}
	}

	if err := that.Record.MakeMove(mov); err != nil {
		return PlayResult{Effect: EffectNone}
	}

	that.clearPending()
	return PlayResult{Effect: EffectMove, Move: mov}
}

func (that *GameState) playRequest(stone Stone, kind RequestKind) PlayResult {
	slot := that.pendingSlot(kind)

	if *slot == stone {
		// Duplicate request.
		return PlayResult{Effect: EffectNone}
	}
	if kind == RequestRetract && !that.Record.HasPast() {
		return PlayResult{Effect: EffectNone}
	}

	if *slot == StoneNone {
		// No request present, make one.
		*slot = stone
		return PlayResult{Effect: EffectRequest, Request: kind}
	}

	// The opposite stone has the same request pending; fulfill it.
	switch kind {
	case RequestDraw:
		if err := that.Record.MakeMove(NewDraw()); err != nil {
			return PlayResult{Effect: EffectNone}
		}
		that.clearPending()
		return PlayResult{Effect: EffectMove, Move: NewDraw()}
	case RequestRetract:
		if _, err := that.Record.UndoMove(); err != nil {
			return PlayResult{Effect: EffectNone}
		}
		that.clearPending()
		return PlayResult{Effect: EffectRetract}
	default:
		that.Record.Clear()
		that.clearPending()
		return PlayResult{Effect: EffectReset}
	}
}
