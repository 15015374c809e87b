package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c6online/connect6-backend/internal/protocol"
)

func TestGenerateGameID(t *testing.T) {
	t.Run("IDs are well formed", func(t *testing.T) {
		id, err := GenerateGameID()

		require.NoError(t, err)
		parsed, err := protocol.ParseGameID([]byte(id))
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("IDs do not repeat in practice", func(t *testing.T) {
		seen := make(map[protocol.GameID]bool)
		for i := 0; i < 100; i++ {
			id, err := GenerateGameID()
			require.NoError(t, err)
			assert.False(t, seen[id])
			seen[id] = true
		}
	})
}

func TestHashPasscode(t *testing.T) {
	t.Run("Digests are deterministic and fixed size", func(t *testing.T) {
		a := HashPasscode([]byte("p1"), []byte("AbCdEfGhIj"))
		b := HashPasscode([]byte("p1"), []byte("AbCdEfGhIj"))

		assert.Equal(t, a, b)
		assert.Len(t, a, 32)
	})

	t.Run("The salt separates games", func(t *testing.T) {
		a := HashPasscode([]byte("p1"), []byte("AbCdEfGhIj"))
		b := HashPasscode([]byte("p1"), []byte("JiHgFeDcBa"))

		assert.NotEqual(t, a, b)
	})

	t.Run("Different passcodes differ", func(t *testing.T) {
		a := HashPasscode([]byte("p1"), []byte("AbCdEfGhIj"))
		b := HashPasscode([]byte("p2"), []byte("AbCdEfGhIj"))

		assert.NotEqual(t, a, b)
	})
}
