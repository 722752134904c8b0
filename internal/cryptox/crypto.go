// Package cryptox implements the server-side encryption (SSE) schemes used
// for password revision payloads.
//
// Schemes:
//   - SSENone:  payload stored as-is.
//   - SSEv1r1: AES-256-GCM under a single key, SHA-256 of the server secret. Legacy.
//   - SSEv2r1: AES-256-GCM under a per-revision key derived with HKDF-SHA256
//     from the server secret and a random 32-byte salt stored with the revision.
//
// Client-side encryption (CSE) happens before the payload reaches the server;
// the server never holds CSE keys.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	SSENone = "none"
	SSEv1r1 = "SSEv1r1"
	SSEv2r1 = "SSEv2r1"

	// SSECurrent is the scheme new and upgraded revisions are sealed with.
	SSECurrent = SSEv2r1

	CSENone = "none"
	CSEv1r1 = "CSEv1r1"
)

const (
	keySize  = 32
	saltSize = 32
	hkdfInfo = "password-revision-sse-v2r1"
)

var (
	ErrUnknownScheme = errors.New("unknown sse scheme")
	ErrEmptySecret   = errors.New("empty server secret")
)

// Sealed is an encrypted payload together with the material needed to open it.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
	// KeySalt is the HKDF salt for SSEv2r1 and empty for other schemes.
	KeySalt []byte
}

// ServerCipher seals and opens revision payloads with the server secret.
type ServerCipher struct {
	secret []byte
}

func NewServerCipher(secret []byte) (*ServerCipher, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &ServerCipher{secret: s}, nil
}

// Seal encrypts plaintext with the given scheme.
func (c *ServerCipher) Seal(scheme string, plaintext []byte) (*Sealed, error) {
	var salt []byte

	switch scheme {
	case SSENone:
		return &Sealed{Ciphertext: append([]byte(nil), plaintext...)}, nil
	case SSEv1r1:
	case SSEv2r1:
		salt = GenerateRandByteArray(saltSize)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}

	aesgcm, err := c.aead(scheme, salt)
	if err != nil {
		return nil, err
	}

	nonce := GenerateRandByteArray(aesgcm.NonceSize())
	ciphertext := aesgcm.Seal(nil, nonce, plaintext, nil)

	return &Sealed{Ciphertext: ciphertext, Nonce: nonce, KeySalt: salt}, nil
}

// Open decrypts a payload sealed with the given scheme.
func (c *ServerCipher) Open(scheme string, s *Sealed) ([]byte, error) {
	if scheme == SSENone {
		return append([]byte(nil), s.Ciphertext...), nil
	}

	aesgcm, err := c.aead(scheme, s.KeySalt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, s.Nonce, s.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s payload: %w", scheme, err)
	}
	return plaintext, nil
}

// Reseal opens a payload sealed with from and seals it again with to.
func (c *ServerCipher) Reseal(from, to string, s *Sealed) (*Sealed, error) {
	plaintext, err := c.Open(from, s)
	if err != nil {
		return nil, err
	}
	defer WipeByteArray(plaintext)

	return c.Seal(to, plaintext)
}

func (c *ServerCipher) aead(scheme string, salt []byte) (cipher.AEAD, error) {
	key, err := c.key(scheme, salt)
	if err != nil {
		return nil, err
	}
	defer WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (c *ServerCipher) key(scheme string, salt []byte) ([]byte, error) {
	switch scheme {
	case SSEv1r1:
		sum := sha256.Sum256(c.secret)
		return sum[:], nil
	case SSEv2r1:
		if len(salt) != saltSize {
			return nil, fmt.Errorf("sse %s: bad key salt length %d", scheme, len(salt))
		}
		key := make([]byte, keySize)
		if _, err := io.ReadFull(hkdf.New(sha256.New, c.secret, salt, []byte(hkdfInfo)), key); err != nil {
			return nil, err
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

// GenerateRandByteArray returns n bytes from crypto/rand. It panics if the
// system random source fails, which is not recoverable.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray overwrites b with zeros. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
