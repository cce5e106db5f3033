package domain

import "time"

// MFACode is a time-boxed one-time code issued at login. Only the hash is
// stored; the plaintext exists just long enough to be delivered out of band.
type MFACode struct {
	ID        string
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	Used      bool
	CreatedAt time.Time
}
