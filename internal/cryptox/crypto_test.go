package cryptox

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCipher(t *testing.T) *ServerCipher {
	t.Helper()
	c, err := NewServerCipher([]byte("server-secret"))
	require.NoError(t, err)
	return c
}

func TestNewServerCipher_EmptySecret(t *testing.T) {
	_, err := NewServerCipher(nil)
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestSealOpen_AllSchemes(t *testing.T) {
	c := newCipher(t)
	plaintext := []byte(`{"password":"hunter2","url":"https://example.com"}`)

	for _, scheme := range []string{SSENone, SSEv1r1, SSEv2r1} {
		t.Run(scheme, func(t *testing.T) {
			sealed, err := c.Seal(scheme, plaintext)
			require.NoError(t, err)

			if scheme != SSENone {
				assert.False(t, bytes.Equal(plaintext, sealed.Ciphertext), "payload must be encrypted")
				assert.NotEmpty(t, sealed.Nonce)
			}
			if scheme == SSEv2r1 {
				assert.Len(t, sealed.KeySalt, saltSize)
			} else {
				assert.Empty(t, sealed.KeySalt)
			}

			got, err := c.Open(scheme, sealed)
			require.NoError(t, err)
			assert.Equal(t, plaintext, got)
		})
	}
}

func TestSeal_V2UsesDistinctKeysPerRevision(t *testing.T) {
	c := newCipher(t)

	a, err := c.Seal(SSEv2r1, []byte("same"))
	require.NoError(t, err)
	b, err := c.Seal(SSEv2r1, []byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a.KeySalt, b.KeySalt)

	// a's ciphertext cannot be opened with b's salt
	_, err = c.Open(SSEv2r1, &Sealed{Ciphertext: a.Ciphertext, Nonce: a.Nonce, KeySalt: b.KeySalt})
	require.Error(t, err)
}

func TestOpen_WrongSecretFails(t *testing.T) {
	c := newCipher(t)
	other, err := NewServerCipher([]byte("another-secret"))
	require.NoError(t, err)

	sealed, err := c.Seal(SSEv1r1, []byte("x"))
	require.NoError(t, err)

	_, err = other.Open(SSEv1r1, sealed)
	require.Error(t, err)
}

func TestReseal_LegacyToCurrent(t *testing.T) {
	c := newCipher(t)
	plaintext := []byte("legacy payload")

	legacy, err := c.Seal(SSEv1r1, plaintext)
	require.NoError(t, err)

	current, err := c.Reseal(SSEv1r1, SSECurrent, legacy)
	require.NoError(t, err)

	got, err := c.Open(SSECurrent, current)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestUnknownScheme(t *testing.T) {
	c := newCipher(t)

	_, err := c.Seal("SSEv9", []byte("x"))
	assert.True(t, errors.Is(err, ErrUnknownScheme))

	_, err = c.Open("SSEv9", &Sealed{})
	assert.True(t, errors.Is(err, ErrUnknownScheme))
}

func TestOpen_V2BadSaltLength(t *testing.T) {
	c := newCipher(t)
	_, err := c.Open(SSEv2r1, &Sealed{Ciphertext: []byte("x"), Nonce: make([]byte, 12), KeySalt: []byte("short")})
	require.Error(t, err)
}

func TestWipeByteArray(t *testing.T) {
	buf := []byte{1, 2, 3}
	WipeByteArray(buf)
	assert.Equal(t, []byte{0, 0, 0}, buf)
	WipeByteArray(nil)
}
