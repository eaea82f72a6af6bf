package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	return hex.EncodeToString(make([]byte, 32))
}

func TestContentCipher_RoundTrip(t *testing.T) {
	cipher, err := NewContentCipher(testKey())
	require.NoError(t, err)

	for _, plaintext := range []string{"hello", "", "emoji 🚀 and ünïcode", "a longer message body with\nnewlines and URLs https://example.com"} {
		ct, err := cipher.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, []byte(plaintext), ct)

		got, err := cipher.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestContentCipher_NonceUniqueness(t *testing.T) {
	cipher, err := NewContentCipher(testKey())
	require.NoError(t, err)

	a, err := cipher.Encrypt("same input")
	require.NoError(t, err)
	b, err := cipher.Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestContentCipher_RejectsBadKey(t *testing.T) {
	_, err := NewContentCipher("deadbeef")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewContentCipher("not hex at all")
	assert.Error(t, err)
}

func TestContentCipher_RejectsTamperedCiphertext(t *testing.T) {
	cipher, err := NewContentCipher(testKey())
	require.NoError(t, err)

	ct, err := cipher.Encrypt("payload")
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0xff

	_, err = cipher.Decrypt(ct)
	assert.Error(t, err)
}
