// Package models defines server-side data models persisted in the database.
package models

import "time"

// Password is a secret record. Its content lives in revisions; Revision
// points at the current one.
type Password struct {
	ID     string
	UserID string
	// Revision is the id of the current revision.
	Revision string
	// ShareID is set when this password is the receiver-side copy of a share.
	ShareID string
	// HasShares is set once the password has been shared.
	HasShares bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsShared reports whether the password originates from another share.
func (p *Password) IsShared() bool {
	return p.ShareID != ""
}
