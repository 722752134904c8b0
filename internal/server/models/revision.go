package models

import "time"

// Revision is a versioned content snapshot of a Password.
type Revision struct {
	ID         string
	PasswordID string
	UserID     string

	// CseType is the client-side encryption mode, "none" when the server
	// can read the payload after SSE.
	CseType string
	// SseType is the server-side encryption scheme of Data.
	SseType string
	// SseKey is per-revision key material for schemes that need it.
	SseKey []byte

	Data  []byte
	Nonce []byte
	Hash  string

	CreatedAt time.Time
}
