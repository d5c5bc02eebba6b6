package chat

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	callIDPrefix = "call_"
)

var callIDPattern = regexp.MustCompile(`^call_[a-zA-Z0-9]{24}$`)

// NewCallID generates a new tool call ID with the "call_" prefix
// followed by 24 cryptographically random alphanumeric characters.
func NewCallID() string {
	return callIDPrefix + randomAlphanumeric(idLength)
}

// ValidateCallID checks whether the given string is a valid tool call ID
// (matches "call_" + 24 alphanumeric characters).
func ValidateCallID(id string) bool {
	return callIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
