package hashutil

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBytes(t *testing.T) {
	raw := []byte("0123456789abcdef0123456789abcdef")

	cases := []struct {
		name       string
		input      string
		shouldFail bool
	}{
		{name: "hex", input: hex.EncodeToString(raw)},
		{name: "base64 standard", input: base64.StdEncoding.EncodeToString(raw)},
		{name: "base64 raw url", input: base64.RawURLEncoding.EncodeToString(raw)},
		{name: "padded with whitespace", input: "  " + hex.EncodeToString(raw) + "\n"},
		{name: "empty", input: "   ", shouldFail: true},
		{name: "garbage", input: "not*valid*key", shouldFail: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := DecodeBytes(tc.input)
			if tc.shouldFail {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, raw, decoded)
		})
	}
}

func TestEqualSecret(t *testing.T) {
	assert.True(t, EqualSecret("123456", "123456"))
	assert.False(t, EqualSecret("123456", "123457"))
	assert.False(t, EqualSecret("123456", "1234567"))
	assert.False(t, EqualSecret("123456", ""))
}
