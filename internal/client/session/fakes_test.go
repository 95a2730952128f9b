package session

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/client/entitlement"
	"github.com/dmitrijs2005/photorestore/internal/client/models"
	"github.com/dmitrijs2005/photorestore/internal/logging"
)

type deltaCall struct {
	UserID  string
	DeltaID string
	Amount  int64
	Reason  string
}

// fakeGateway is a scriptable backend. Hooks, when set, override the plain
// return fields.
type fakeGateway struct {
	mu sync.Mutex

	signInErr  error
	signUpErr  error
	signOutErr error

	identity    *models.Identity
	identityErr error

	snapshot models.EntitlementSnapshot
	entErr   error

	deltaVersion int64
	deltaErr     error

	claimErr error

	signInHook   func(ctx context.Context) error
	identityHook func(ctx context.Context) (*models.Identity, error)
	entHook      func(ctx context.Context, calls int) (models.EntitlementSnapshot, error)
	deltaHook    func(ctx context.Context)

	signInCalls   int
	signOutCalls  int
	identityCalls int
	entCalls      int
	claimCalls    int
	deltas        []deltaCall
	lastFullName  string
}

func (f *fakeGateway) SignIn(ctx context.Context, email, password string) error {
	f.mu.Lock()
	f.signInCalls++
	hook, err := f.signInHook, f.signInErr
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx)
	}
	return err
}

func (f *fakeGateway) SignUp(ctx context.Context, email, password, fullName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFullName = fullName
	return f.signUpErr
}

func (f *fakeGateway) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	return f.signOutErr
}

func (f *fakeGateway) GetCurrentIdentity(ctx context.Context) (*models.Identity, error) {
	f.mu.Lock()
	f.identityCalls++
	hook, id, err := f.identityHook, f.identity, f.identityErr
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx)
	}
	if id == nil {
		return nil, err
	}
	cp := *id
	return &cp, err
}

func (f *fakeGateway) FetchEntitlement(ctx context.Context, userID string) (models.EntitlementSnapshot, error) {
	f.mu.Lock()
	f.entCalls++
	calls, hook, snap, err := f.entCalls, f.entHook, f.snapshot, f.entErr
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx, calls)
	}
	return snap, err
}

func (f *fakeGateway) PersistCreditDelta(ctx context.Context, userID, deltaID string, amount int64, reason string) (int64, error) {
	f.mu.Lock()
	f.deltas = append(f.deltas, deltaCall{UserID: userID, DeltaID: deltaID, Amount: amount, Reason: reason})
	hook, version, err := f.deltaHook, f.deltaVersion, f.deltaErr
	f.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}
	return version, err
}

func (f *fakeGateway) UpdateProfile(ctx context.Context, userID, fullName string) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFullName = fullName
	return &models.Identity{ID: userID, Email: "ana@example.com", FullName: fullName}, nil
}

func (f *fakeGateway) ClaimTrial(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimCalls++
	return 3, f.claimErr
}

func (f *fakeGateway) set(fn func(f *fakeGateway)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type memCache struct {
	mu      sync.Mutex
	rec     *models.CachedSession
	loadErr error
	cleared int
}

func (c *memCache) LoadSession(context.Context) (*models.CachedSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec == nil {
		return nil, c.loadErr
	}
	cp := *c.rec
	return &cp, c.loadErr
}

func (c *memCache) SaveSession(_ context.Context, s models.CachedSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec = &s
	return nil
}

func (c *memCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec = nil
	c.cleared++
	return nil
}

func (c *memCache) get() *models.CachedSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec
}

var ana = &models.Identity{ID: "u1", Email: "ana@example.com", FullName: "Ana"}

func snap(credits int64, trialUsed bool, version int64) models.EntitlementSnapshot {
	return models.EntitlementSnapshot{
		Entitlement: models.Entitlement{Credits: credits, TrialUsed: trialUsed},
		Version:     version,
		FetchedAt:   time.Now(),
	}
}

func newTestStore(gw *fakeGateway, cache Cache) *Store {
	return NewStore(gw, cache, entitlement.NewLedger(), logging.Nop(), Options{
		RequestTimeout:       time.Second,
		ProfileRetryAttempts: 4,
		ProfileRetryDelay:    time.Millisecond,
	})
}
