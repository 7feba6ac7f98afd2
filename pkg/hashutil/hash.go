package hashutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

var errUnsupportedEncoding = errors.New("unsupported key encoding")

// DecodeBytes decodes a hex or base64/base64url string. It is used for keys handed to the
// agent through config files and environment variables.
func DecodeBytes(s string) ([]byte, error) {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return nil, errUnsupportedEncoding
	}

	if decoded, err := hex.DecodeString(clean); err == nil {
		return decoded, nil
	}

	base64Variants := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}

	for _, enc := range base64Variants {
		if decoded, err := enc.DecodeString(clean); err == nil {
			return decoded, nil
		}
	}

	return nil, errUnsupportedEncoding
}

// EqualSecret reports whether two secrets match. Both sides are hashed first so the
// comparison takes the same time regardless of where or whether the lengths differ.
func EqualSecret(expected, actual string) bool {
	a := sha256.Sum256([]byte(expected))
	b := sha256.Sum256([]byte(actual))

	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
