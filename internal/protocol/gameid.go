package protocol

import (
	"github.com/c6online/connect6-backend/internal/apperror"
)

// GameIDLength - the fixed length of a game ID on the wire.
const GameIDLength = 10

// GameID - a fixed-length alphanumeric game token.
type GameID string

// ParseGameID - creates a game ID from wire bytes.
func ParseGameID(b []byte) (GameID, error) {
	if len(b) != GameIDLength {
		return "", apperror.ErrMalformedData
	}
	for _, c := range b {
		if !isAlphanumeric(c) {
			return "", apperror.ErrMalformedData
		}
	}
	return GameID(b), nil
}

func isAlphanumeric(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
