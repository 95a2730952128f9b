package models

import "time"

type Outcome string

const (
	OutcomeGrantedPending     Outcome = "granted-pending"
	OutcomeSucceeded          Outcome = "succeeded"
	OutcomeFailedRestored     Outcome = "failed-restored-credit"
	OutcomeDeniedInsufficient Outcome = "denied-insufficient-credits"
	// OutcomeFailed is used for trial runs, which hold no credit.
	OutcomeFailed Outcome = "failed"
)

// Artifact is the result of a restoration.
type Artifact struct {
	OriginalURL string
	RestoredURL string
}

// RestorationAttempt is kept in memory only.
type RestorationAttempt struct {
	ID          string
	RequestedAt time.Time
	FinishedAt  time.Time
	Trial       bool
	Outcome     Outcome
	Artifact    *Artifact
	Err         error
}
