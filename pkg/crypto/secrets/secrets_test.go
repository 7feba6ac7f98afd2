package secrets

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, keyLength)
}

func TestSealOpen(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	sealed, err := c.Seal([]byte(`{"lockToken":"123456"}`), "offline_tokens")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "123456")

	plain, err := c.Open(sealed, "offline_tokens")
	require.NoError(t, err)
	assert.JSONEq(t, `{"lockToken":"123456"}`, string(plain))
}

func TestOpenRejectsWrongLabel(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	sealed, err := c.Seal([]byte("x"), "offline_tokens")
	require.NoError(t, err)

	_, err = c.Open(sealed, "lock_state")
	require.Error(t, err)
}

func TestOpenShortPayload(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	_, err = c.Open("AAAA", "offline_tokens")
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestNewCipherKeyLength(t *testing.T) {
	_, err := NewCipher([]byte("short"))
	require.ErrorIs(t, err, ErrInvalidKeyLength)

	c, err := NewCipherFromString(hex.EncodeToString(testKey()))
	require.NoError(t, err)
	assert.NotNil(t, c)
}
