package pkg

import (
	"crypto/rand"
	"math/big"

	"github.com/c6online/connect6-backend/internal/protocol"
)

const gameIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateGameID - generates a random alphanumeric game identifier.
func GenerateGameID() (protocol.GameID, error) {
	b := make([]byte, protocol.GameIDLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(gameIDAlphabet))))
		if err != nil {
			return "", err
		}
		b[i] = gameIDAlphabet[n.Int64()]
	}
	return protocol.GameID(b), nil
}
