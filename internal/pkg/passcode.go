package pkg

import "golang.org/x/crypto/argon2"

// Argon2id parameters, matching the argon2 reference defaults.
const (
	passcodeTime    = 2
	passcodeMemory  = 19 * 1024
	passcodeThreads = 1
	passcodeKeyLen  = 32
)

// HashPasscode - derives a fixed-size digest from a raw passcode.
//
// The game ID serves as the salt, so equal passcodes in different games
// produce unrelated digests.
func HashPasscode(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, passcodeTime, passcodeMemory, passcodeThreads, passcodeKeyLen)
}
