package apperror

import "errors"

var (
	ErrGameEnded       = errors.New("game is already ended")
	ErrPointOccupied   = errors.New("point is already occupied")
	ErrDoubleOpening   = errors.New("the first move must place a single stone")
	ErrNoWinningRow    = errors.New("no winning row through the claimed point")
	ErrNothingToUndo   = errors.New("no move in the past")
	ErrNothingToRedo   = errors.New("no move in the future")
	ErrIndexOutOfRange = errors.New("move index out of range")

	ErrTruncatedData = errors.New("truncated data")
	ErrMalformedData = errors.New("malformed data")
	ErrTrailingData  = errors.New("trailing data after message")

	ErrGameNotFound = errors.New("game not found")
	ErrShuttingDown = errors.New("server is shutting down")
)
