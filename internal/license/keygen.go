package license

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// keyBytes of randomness per key; hex-encoded to a 30-character uppercase
// code, the stable key format clients present.
const keyBytes = 15

func GenerateKey() (string, error) {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
