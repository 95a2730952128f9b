package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/client/client"
	"github.com/dmitrijs2005/photorestore/internal/client/entitlement"
	"github.com/dmitrijs2005/photorestore/internal/client/models"
	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/logging"
	"golang.org/x/sync/singleflight"
)

// Gateway is the backend surface used by the store.
type Gateway interface {
	client.ProfileGateway
	UpdateProfile(ctx context.Context, userID, fullName string) (*models.Identity, error)
	ClaimTrial(ctx context.Context, userID string) (int64, error)
}

// Cache holds the advisory session record.
type Cache interface {
	LoadSession(ctx context.Context) (*models.CachedSession, error)
	SaveSession(ctx context.Context, s models.CachedSession) error
	Clear(ctx context.Context) error
}

type Options struct {
	RequestTimeout       time.Duration
	ProfileRetryAttempts int
	ProfileRetryDelay    time.Duration
}

type Store struct {
	gw     Gateway
	cache  Cache
	ledger *entitlement.Ledger
	log    logging.Logger
	opts   Options

	mu        sync.Mutex
	identity  *models.Identity
	status    models.Status
	lastError error
	inFlight  int
	token     uint64

	refreshGroup singleflight.Group
}

// NewStore builds an anonymous store. cache may be nil.
func NewStore(gw Gateway, cache Cache, ledger *entitlement.Ledger, log logging.Logger, opts Options) *Store {
	if opts.ProfileRetryAttempts <= 0 {
		opts.ProfileRetryAttempts = 1
	}
	if opts.ProfileRetryDelay <= 0 {
		opts.ProfileRetryDelay = 100 * time.Millisecond
	}
	return &Store{
		gw:     gw,
		cache:  cache,
		ledger: ledger,
		log:    log.With("module", "session"),
		opts:   opts,
		status: models.StatusAnonymous,
	}
}

// State returns a snapshot of the session.
func (s *Store) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.SessionState{
		Status:    s.status,
		IsLoading: s.inFlight > 0,
		LastError: s.lastError,
	}
	if s.identity != nil {
		id := *s.identity
		st.Identity = &id
	}
	st.IsAuthenticated = s.status == models.StatusAuthenticated && s.identity != nil
	if st.IsAuthenticated {
		st.Entitlement = s.ledger.State()
	}
	return st
}

func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == models.StatusAuthenticated && s.identity != nil
}

// UserID returns the authenticated user's id, or "" when anonymous.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != models.StatusAuthenticated || s.identity == nil {
		return ""
	}
	return s.identity.ID
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.lastError = nil
	s.mu.Unlock()
}

func (s *Store) done() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}

// startAuth moves to authenticating and returns the request token, or fails
// when another login or registration is already running.
func (s *Store) startAuth() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == models.StatusAuthenticating {
		return 0, common.ErrAuthInProgress
	}
	s.token++
	s.status = models.StatusAuthenticating
	s.lastError = nil
	s.inFlight++
	return s.token, nil
}

// Login signs in and loads the authoritative profile.
func (s *Store) Login(ctx context.Context, email, password string) error {
	tok, err := s.startAuth()
	if err != nil {
		return err
	}
	defer s.done()

	if err := s.call(ctx, func(ctx context.Context) error { return s.gw.SignIn(ctx, email, password) }); err != nil {
		return s.fail(ctx, tok, err)
	}

	ident, snap, err := s.fetchProfile(ctx)
	if err != nil {
		return s.fail(ctx, tok, err)
	}
	s.authenticate(ctx, tok, ident, snap)
	return nil
}

// Register creates the account and waits for its profile to appear, polling
// with exponential backoff. ProfileNotFound is reported only once the retry
// budget is spent.
func (s *Store) Register(ctx context.Context, email, password, fullName string) error {
	tok, err := s.startAuth()
	if err != nil {
		return err
	}
	defer s.done()

	if err := s.call(ctx, func(ctx context.Context) error { return s.gw.SignUp(ctx, email, password, fullName) }); err != nil {
		return s.fail(ctx, tok, err)
	}

	ident, snap, err := s.pollProfile(ctx)
	if err != nil {
		return s.fail(ctx, tok, err)
	}
	s.authenticate(ctx, tok, ident, snap)
	return nil
}

// Logout always leaves the store anonymous. A failing remote sign-out is
// logged only.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token++
	s.inFlight++
	s.mu.Unlock()
	defer s.done()

	if err := s.call(ctx, s.gw.SignOut); err != nil {
		s.log.Warn(ctx, "remote sign out failed", "error", err)
	}

	s.mu.Lock()
	s.toAnonymousLocked(nil)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.log.Warn(ctx, "failed to clear session cache", "error", err)
		}
	}
	return nil
}

// CheckSession reconciles with the backend at startup. The cached record
// only seeds the store; the backend decides. Every failure leaves the store
// anonymous with LastError set, and the same error is returned.
func (s *Store) CheckSession(ctx context.Context) (err error) {
	s.mu.Lock()
	if s.status == models.StatusAuthenticating {
		s.mu.Unlock()
		return nil
	}
	s.token++
	tok := s.token
	s.status = models.StatusAuthenticating
	s.inFlight++
	s.mu.Unlock()
	defer s.done()

	defer func() {
		if p := recover(); p != nil {
			s.log.Error(ctx, "session check panicked", "panic", p)
			err = s.fail(ctx, tok, fmt.Errorf("%w: %v", common.ErrUnknown, p))
		}
	}()

	s.seedFromCache(ctx)

	var ident *models.Identity
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		ident, err = s.gw.GetCurrentIdentity(ctx)
		return err
	})
	if err != nil {
		return s.fail(ctx, tok, err)
	}
	if ident == nil {
		s.mu.Lock()
		if tok == s.token {
			s.toAnonymousLocked(nil)
		}
		s.mu.Unlock()
		s.saveCache(ctx)
		return nil
	}

	snap, err := s.fetchEntitlement(ctx, ident.ID)
	if err != nil {
		return s.fail(ctx, tok, err)
	}
	s.authenticate(ctx, tok, ident, snap)
	return nil
}

func (s *Store) seedFromCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	rec, err := s.cache.LoadSession(ctx)
	if err != nil {
		s.log.Warn(ctx, "ignoring unreadable session cache", "error", err)
		return
	}
	if rec == nil || !rec.IsAuthenticated || rec.Identity == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := *rec.Identity
	s.identity = &id
	s.ledger.Seed(models.Entitlement{Credits: rec.Credits, TrialUsed: rec.TrialUsed}, rec.Version)
}

// RefreshUserData re-reads identity and entitlement from the backend and
// merges them through the ledger. Concurrent calls share one round trip.
// A network failure leaves the state as it was; a rejected session makes the
// store anonymous.
func (s *Store) RefreshUserData(ctx context.Context) error {
	s.mu.Lock()
	if s.status != models.StatusAuthenticated || s.identity == nil {
		s.mu.Unlock()
		return common.ErrNotAuthenticated
	}
	s.inFlight++
	s.mu.Unlock()
	defer s.done()

	_, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		return nil, s.refresh(ctx)
	})
	return err
}

func (s *Store) refresh(ctx context.Context) error {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()

	var ident *models.Identity
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		ident, err = s.gw.GetCurrentIdentity(ctx)
		return err
	})
	if err == nil && ident == nil {
		err = common.ErrNotAuthenticated
	}

	var snap models.EntitlementSnapshot
	if err == nil {
		snap, err = s.fetchEntitlement(ctx, ident.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok != s.token {
		s.log.Info(ctx, "dropping superseded refresh result")
		return nil
	}

	if err != nil {
		if errors.Is(err, common.ErrNotAuthenticated) || errors.Is(err, common.ErrProfileNotFound) {
			s.toAnonymousLocked(err)
			s.saveCacheLocked(ctx)
		} else {
			s.lastError = err
		}
		s.log.Warn(ctx, "refresh failed", "error", err)
		return err
	}

	if s.identity == nil || s.identity.ID != ident.ID {
		s.ledger.Reset()
	}
	s.identity = ident
	s.lastError = nil
	if !s.ledger.Apply(snap) {
		s.log.Debug(ctx, "ignoring stale entitlement snapshot", "version", snap.Version, "applied", s.ledger.Version())
	}
	s.saveCacheLocked(ctx)
	return nil
}

// UpdateProfile changes the user's full name.
func (s *Store) UpdateProfile(ctx context.Context, fullName string) error {
	userID := s.UserID()
	if userID == "" {
		return common.ErrNotAuthenticated
	}

	var ident *models.Identity
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		ident, err = s.gw.UpdateProfile(ctx, userID, fullName)
		return err
	})
	if err != nil {
		s.setError(err)
		return err
	}

	s.mu.Lock()
	if s.identity != nil && s.identity.ID == ident.ID {
		s.identity.FullName = ident.FullName
	}
	s.saveCacheLocked(ctx)
	s.mu.Unlock()
	return nil
}

// AddCredits raises the local balance and persists the change.
func (s *Store) AddCredits(ctx context.Context, amount int64) error {
	userID := s.UserID()
	if userID == "" {
		return common.ErrNotAuthenticated
	}

	d, err := s.ledger.AddCredits(amount)
	if err != nil {
		return err
	}
	s.persist(ctx, userID, d)
	return nil
}

// MarkTrialUsed flags the trial locally and claims it on the backend. The
// local flag survives a failed round trip but not a claim the backend
// refused.
func (s *Store) MarkTrialUsed(ctx context.Context) error {
	userID := s.UserID()
	if userID == "" {
		return common.ErrNotAuthenticated
	}
	if !s.ledger.MarkTrialUsed() {
		return nil
	}

	var version int64
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		version, err = s.gw.ClaimTrial(ctx, userID)
		return err
	})
	if err != nil {
		s.log.Error(ctx, "failed to claim trial remotely", "user_id", userID, "error", err)
		// ErrTrialUnavailable means the backend already counts the trial.
		if !errors.Is(err, common.ErrNetworkOrBackend) && !errors.Is(err, common.ErrTrialUnavailable) {
			s.ledger.ClearTrialClaim()
		}
	} else {
		s.log.Debug(ctx, "trial claimed", "user_id", userID, "version", version)
	}
	s.saveCache(ctx)
	return err
}

func (s *Store) TrialUsed() bool {
	return s.ledger.TrialUsed()
}

// Unsettled reports local credit changes the backend has not confirmed yet and
// reservations still held by running restorations.
func (s *Store) Unsettled() (pending, open int) {
	return len(s.ledger.Pending()), s.ledger.OpenReservations()
}

// Reserve takes one credit for a restoration.
func (s *Store) Reserve() (entitlement.Reservation, bool) {
	if !s.IsAuthenticated() {
		return entitlement.Reservation{}, false
	}
	return s.ledger.ConsumeCredit()
}

// Release gives a reserved credit back.
func (s *Store) Release(ctx context.Context, r entitlement.Reservation) error {
	if err := s.ledger.RestoreCredit(r); err != nil {
		return err
	}
	s.saveCache(ctx)
	return nil
}

// Commit finalizes a reservation and persists the consumption. Persistence
// failures are logged and left for the next refresh to settle.
func (s *Store) Commit(ctx context.Context, r entitlement.Reservation) error {
	d, err := s.ledger.Commit(r)
	if err != nil {
		return err
	}
	if userID := s.UserID(); userID != "" {
		s.persist(ctx, userID, d)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, userID string, d entitlement.Delta) {
	var version int64
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		version, err = s.gw.PersistCreditDelta(ctx, userID, d.ID, d.Amount, d.Reason)
		return err
	})
	if err != nil {
		s.log.Error(ctx, "failed to persist credit delta", "user_id", userID, "delta_id", d.ID, "amount", d.Amount, "error", err)
		s.ledger.Discard(d.ID)
	} else {
		s.ledger.Acknowledge(d.ID, version)
	}
	s.saveCache(ctx)
}

func (s *Store) fetchProfile(ctx context.Context) (*models.Identity, models.EntitlementSnapshot, error) {
	var ident *models.Identity
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		ident, err = s.gw.GetCurrentIdentity(ctx)
		return err
	})
	if err != nil {
		return nil, models.EntitlementSnapshot{}, err
	}
	if ident == nil {
		return nil, models.EntitlementSnapshot{}, common.ErrProfileNotFound
	}

	snap, err := s.fetchEntitlement(ctx, ident.ID)
	if err != nil {
		return nil, models.EntitlementSnapshot{}, err
	}
	return ident, snap, nil
}

func (s *Store) fetchEntitlement(ctx context.Context, userID string) (models.EntitlementSnapshot, error) {
	var snap models.EntitlementSnapshot
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		snap, err = s.gw.FetchEntitlement(ctx, userID)
		return err
	})
	return snap, err
}

// authenticate applies a successful profile load unless the request was
// superseded.
func (s *Store) authenticate(ctx context.Context, tok uint64, ident *models.Identity, snap models.EntitlementSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok != s.token {
		s.log.Info(ctx, "dropping superseded authentication result", "user_id", ident.ID)
		return
	}

	if s.identity == nil || s.identity.ID != ident.ID {
		s.ledger.Reset()
	}
	s.identity = ident
	s.status = models.StatusAuthenticated
	s.lastError = nil
	if !s.ledger.Apply(snap) {
		s.log.Debug(ctx, "ignoring stale entitlement snapshot", "version", snap.Version)
	}
	s.saveCacheLocked(ctx)
}

// fail records err and returns to anonymous, unless the request was
// superseded. err is returned for convenience.
func (s *Store) fail(ctx context.Context, tok uint64, err error) error {
	s.log.Warn(ctx, "authentication failed", "error", err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok != s.token {
		return err
	}
	s.toAnonymousLocked(err)
	s.saveCacheLocked(ctx)
	return err
}

func (s *Store) setError(err error) {
	s.mu.Lock()
	s.lastError = err
	s.mu.Unlock()
}

func (s *Store) toAnonymousLocked(err error) {
	s.identity = nil
	s.status = models.StatusAnonymous
	s.lastError = err
	s.ledger.Reset()
}

func (s *Store) saveCache(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCacheLocked(ctx)
}

func (s *Store) saveCacheLocked(ctx context.Context) {
	if s.cache == nil {
		return
	}

	authed := s.status == models.StatusAuthenticated && s.identity != nil
	rec := models.CachedSession{IsAuthenticated: authed}
	if authed {
		id := *s.identity
		ent := s.ledger.State()
		rec.Identity = &id
		rec.Credits = ent.Credits
		rec.TrialUsed = ent.TrialUsed
		rec.Version = s.ledger.Version()
	}

	if err := s.cache.SaveSession(ctx, rec); err != nil {
		s.log.Warn(ctx, "failed to write session cache", "error", err)
	}
}

// call runs fn under the request timeout and folds timeouts into
// ErrNetworkOrBackend.
func (s *Store) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if common.Classify(err) == common.ErrUnknown &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return fmt.Errorf("%w: %w", common.ErrNetworkOrBackend, err)
	}
	return err
}
