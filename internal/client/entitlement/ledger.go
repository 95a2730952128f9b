// Package entitlement owns the client's credit balance and trial flag.
//
// Ledger is the only writer of models.Entitlement. Every operation takes the
// ledger mutex for its whole read-check-write, so concurrent restorations can
// never spend the same credit twice.
//
// Remote reconciliation is versioned: snapshots older than the last applied
// one are rejected, and local changes the backend has not confirmed yet
// (pending deltas and open reservations) are replayed on top of every accepted
// snapshot.
package entitlement

import (
	"sync"

	"github.com/dmitrijs2005/photorestore/internal/client/models"
	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/google/uuid"
)

const (
	ReasonPurchase    = "purchase"
	ReasonRestoration = "restoration"
)

// Reservation is a credit taken by ConsumeCredit and not yet settled. It must
// be passed to exactly one of RestoreCredit or Commit.
type Reservation struct {
	ID string
}

// Delta is a local balance change awaiting persistence. ID doubles as the
// idempotency key on the backend.
type Delta struct {
	ID     string
	Amount int64
	Reason string
}

type pendingDelta struct {
	Delta
	// ackVersion is the server version that includes this delta, 0 until
	// acknowledged.
	ackVersion int64
}

type Ledger struct {
	mu sync.Mutex

	credits   int64
	trialUsed bool
	version   int64

	// trialClaimed is set by MarkTrialUsed until a snapshot confirms it.
	trialClaimed bool

	open    map[string]struct{}
	pending []pendingDelta

	newID func() string
}

func NewLedger() *Ledger {
	return &Ledger{
		open:  make(map[string]struct{}),
		newID: uuid.NewString,
	}
}

// AddCredits increases the balance. amount must be positive.
func (l *Ledger) AddCredits(amount int64) (Delta, error) {
	if amount <= 0 {
		return Delta{}, common.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	d := Delta{ID: l.newID(), Amount: amount, Reason: ReasonPurchase}
	l.credits += amount
	l.pending = append(l.pending, pendingDelta{Delta: d})
	return d, nil
}

// ConsumeCredit reserves one credit. It reports false, leaving the balance
// untouched, when there is nothing to spend.
func (l *Ledger) ConsumeCredit() (Reservation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.credits <= 0 {
		return Reservation{}, false
	}

	r := Reservation{ID: l.newID()}
	l.credits--
	l.open[r.ID] = struct{}{}
	return r, true
}

// RestoreCredit gives back the credit held by r. A reservation that is
// unknown or already settled is rejected and the balance is left alone.
func (l *Ledger) RestoreCredit(r Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.open[r.ID]; !ok {
		return common.ErrUnknownReservation
	}
	delete(l.open, r.ID)
	l.credits++
	return nil
}

// Commit makes the consumption behind r final. The returned delta must be
// persisted remotely and then acknowledged or discarded.
func (l *Ledger) Commit(r Reservation) (Delta, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.open[r.ID]; !ok {
		return Delta{}, common.ErrUnknownReservation
	}
	delete(l.open, r.ID)

	d := Delta{ID: r.ID, Amount: -common.CreditsPerRestoration, Reason: ReasonRestoration}
	l.pending = append(l.pending, pendingDelta{Delta: d})
	return d, nil
}

// MarkTrialUsed sets the trial flag. It reports whether the flag changed.
func (l *Ledger) MarkTrialUsed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.trialUsed {
		return false
	}
	l.trialUsed = true
	l.trialClaimed = true
	return true
}

// Apply merges an authoritative snapshot. Snapshots older than the last
// applied version are rejected. Pending deltas not yet covered by the
// snapshot and open reservations are replayed on top of it.
func (l *Ledger) Apply(s models.EntitlementSnapshot) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s.Version < l.version {
		return false
	}
	l.version = s.Version

	kept := l.pending[:0]
	credits := s.Credits
	for _, p := range l.pending {
		if p.ackVersion != 0 && p.ackVersion <= s.Version {
			continue
		}
		kept = append(kept, p)
		credits += p.Amount
	}
	l.pending = kept

	credits -= int64(len(l.open))
	if credits < 0 {
		credits = 0
	}
	l.credits = credits

	if s.TrialUsed {
		l.trialClaimed = false
	}
	l.trialUsed = s.TrialUsed || l.trialClaimed
	return true
}

// Acknowledge records that the backend applied delta id at version. When a
// snapshot at or after version was already merged, that snapshot counted the
// delta and so did the replay on top of it; the replayed copy is taken back.
func (l *Ledger) Acknowledge(id string, version int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.pending {
		if l.pending[i].ID != id {
			continue
		}
		if version > 0 && version <= l.version {
			l.credits = max(l.credits-l.pending[i].Amount, 0)
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return
		}
		l.pending[i].ackVersion = version
		return
	}
}

// Discard forgets a delta the backend refused or never received. The local
// balance keeps it until the next accepted snapshot replaces it.
func (l *Ledger) Discard(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.pending {
		if l.pending[i].ID == id {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return
		}
	}
}

// ClearTrialClaim drops a local trial mark the backend did not accept.
func (l *Ledger) ClearTrialClaim() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.trialClaimed {
		l.trialClaimed = false
		l.trialUsed = false
	}
}

// Seed loads a cached state without any pending work. It is meant for
// startup, before the first remote snapshot.
func (l *Ledger) Seed(e models.Entitlement, version int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.credits = max(e.Credits, 0)
	l.trialUsed = e.TrialUsed
	l.version = version
}

// Reset returns the ledger to the anonymous state.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.credits = 0
	l.trialUsed = false
	l.trialClaimed = false
	l.version = 0
	l.open = make(map[string]struct{})
	l.pending = nil
}

func (l *Ledger) HasCredits() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credits > 0
}

func (l *Ledger) Credits() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credits
}

func (l *Ledger) TrialUsed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trialUsed
}

func (l *Ledger) Version() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

func (l *Ledger) State() models.Entitlement {
	l.mu.Lock()
	defer l.mu.Unlock()
	return models.Entitlement{Credits: l.credits, TrialUsed: l.trialUsed}
}

// Pending returns the deltas that are not yet covered by a snapshot.
func (l *Ledger) Pending() []Delta {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Delta, 0, len(l.pending))
	for _, p := range l.pending {
		out = append(out, p.Delta)
	}
	return out
}

// OpenReservations is the number of unsettled reservations.
func (l *Ledger) OpenReservations() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.open)
}
