// Package models defines client-side data models used by the photorestore CLI.
package models

import "time"

// Identity is the user as known to the remote auth system. ID never changes
// once assigned.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
}

// Entitlement is what a user may do: remaining restorations and whether the
// one-time free trial was consumed. Credits is never negative.
type Entitlement struct {
	Credits   int64 `json:"credits"`
	TrialUsed bool  `json:"trialUsed"`
}

// EntitlementSnapshot is one authoritative read of the remote profile.
// Version is the server row version the read reflects.
type EntitlementSnapshot struct {
	Entitlement
	Version   int64
	FetchedAt time.Time
}
