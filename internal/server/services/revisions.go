package services

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/cryptox"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/google/uuid"
)

// RevisionService seals revision payloads with the server secret.
type RevisionService struct {
	cipher *cryptox.ServerCipher
	now    func() time.Time
}

func NewRevisionService(cipher *cryptox.ServerCipher) *RevisionService {
	return &RevisionService{cipher: cipher, now: time.Now}
}

// Seal encrypts plaintext into rev using scheme.
func (s *RevisionService) Seal(rev *models.Revision, scheme string, plaintext []byte) error {
	sealed, err := s.cipher.Seal(scheme, plaintext)
	if err != nil {
		return fmt.Errorf("seal revision: %w", err)
	}
	rev.SseType = scheme
	rev.SseKey = sealed.KeySalt
	rev.Data = sealed.Ciphertext
	rev.Nonce = sealed.Nonce
	return nil
}

// Open returns the decrypted payload of rev.
func (s *RevisionService) Open(rev *models.Revision) ([]byte, error) {
	return s.cipher.Open(rev.SseType, sealedOf(rev))
}

// UpgradeSSE returns a copy of rev with a fresh ID whose payload is sealed
// with cryptox.SSECurrent. The copy is not persisted and rev is not modified.
func (s *RevisionService) UpgradeSSE(rev *models.Revision) (*models.Revision, error) {
	sealed, err := s.cipher.Reseal(rev.SseType, cryptox.SSECurrent, sealedOf(rev))
	if err != nil {
		return nil, fmt.Errorf("upgrade revision %s: %w", rev.ID, err)
	}

	return &models.Revision{
		ID:         uuid.NewString(),
		PasswordID: rev.PasswordID,
		UserID:     rev.UserID,
		CseType:    rev.CseType,
		SseType:    cryptox.SSECurrent,
		SseKey:     sealed.KeySalt,
		Data:       sealed.Ciphertext,
		Nonce:      sealed.Nonce,
		Hash:       rev.Hash,
		CreatedAt:  s.now(),
	}, nil
}

func sealedOf(rev *models.Revision) *cryptox.Sealed {
	return &cryptox.Sealed{Ciphertext: rev.Data, Nonce: rev.Nonce, KeySalt: rev.SseKey}
}
