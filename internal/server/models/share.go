package models

import "time"

// Share grants a receiver access to a password owned by UserID.
type Share struct {
	ID string
	// UserID is the owner of the share (the sharer).
	UserID string
	// PasswordID is the source password.
	PasswordID string
	// TargetPasswordID is the receiver-side copy, empty until it is created.
	TargetPasswordID string
	Receiver         string
	Type             string

	Editable  bool
	Shareable bool
	// Expires is nil for shares that never expire.
	Expires *time.Time

	// SourceUpdated marks that source-side attributes changed and the
	// receiver-side copy must refresh.
	SourceUpdated bool
	TargetUpdated bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
