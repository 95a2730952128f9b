package models

import "time"

// Profile is the authoritative entitlement row of a user. Version grows by one
// on every change to Credits, TrialUsed or FullName.
type Profile struct {
	UserID    string
	Email     string
	FullName  string
	Credits   int64
	TrialUsed bool
	Version   int64
	UpdatedAt time.Time
}

// CreditDelta is an applied balance change. Credits and Version record the
// profile state right after the change, so a replayed delta can answer with
// the original outcome.
type CreditDelta struct {
	ID        string
	UserID    string
	Amount    int64
	Reason    string
	Credits   int64
	Version   int64
	CreatedAt time.Time
}
