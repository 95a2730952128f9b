package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/dbx"
	"github.com/dmitrijs2005/photorestore/internal/logging"
	"github.com/dmitrijs2005/photorestore/internal/server/config"
	"github.com/dmitrijs2005/photorestore/internal/server/metrics"
	"github.com/dmitrijs2005/photorestore/internal/server/models"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/checkouts"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/credits"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/subscriptions"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

// memStore backs every fake repository. It ignores transactions: tests drive
// Begin/Commit/Rollback through sqlmock and check state here.
type memStore struct {
	mu sync.Mutex

	users     map[string]*models.User
	tokens    map[string]*models.RefreshToken
	profiles  map[string]*models.Profile
	deltas    map[string]*models.CreditDelta
	checkouts map[string]*models.Checkout
	subs      map[string]*models.Subscription

	createUserErr  error
	createTokenErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]*models.User{},
		tokens:    map[string]*models.RefreshToken{},
		profiles:  map[string]*models.Profile{},
		deltas:    map[string]*models.CreditDelta{},
		checkouts: map[string]*models.Checkout{},
		subs:      map[string]*models.Subscription{},
	}
}

func (m *memStore) seedProfile(userID string, credits int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = &models.Profile{UserID: userID, Email: userID + "@example.com", Credits: credits, Version: 1}
}

func (m *memStore) profile(userID string) models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.profiles[userID]
}

type fakeRepoManager struct{ s *memStore }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return fakeUsers{f.s} }
func (f *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return fakeTokens{f.s} }
func (f *fakeRepoManager) Profiles(dbx.DBTX) profiles.Repository           { return fakeProfiles{f.s} }
func (f *fakeRepoManager) Credits(dbx.DBTX) credits.Repository             { return fakeCredits{f.s} }
func (f *fakeRepoManager) Checkouts(dbx.DBTX) checkouts.Repository         { return fakeCheckouts{f.s} }
func (f *fakeRepoManager) Subscriptions(dbx.DBTX) subscriptions.Repository { return fakeSubs{f.s} }

type fakeUsers struct{ s *memStore }

func (r fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createUserErr != nil {
		return nil, r.s.createUserErr
	}
	for _, x := range r.s.users {
		if x.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	r.s.users[cp.ID] = &cp
	return &cp, nil
}

func (r fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r fakeUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeTokens struct{ s *memStore }

func (r fakeTokens) Create(_ context.Context, userID, token string, validity time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createTokenErr != nil {
		return r.s.createTokenErr
	}
	r.s.tokens[token] = &models.RefreshToken{ID: uuid.NewString(), UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r fakeTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (r fakeTokens) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, token)
	return nil
}

func (r fakeTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, t := range r.s.tokens {
		if t.Expires.Before(now) {
			delete(r.s.tokens, k)
			n++
		}
	}
	return n, nil
}

type fakeProfiles struct{ s *memStore }

func (r fakeProfiles) Create(_ context.Context, userID, fullName string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := &models.Profile{UserID: userID, FullName: fullName, Version: 1}
	r.s.profiles[userID] = p
	cp := *p
	return &cp, nil
}

func (r fakeProfiles) Get(_ context.Context, userID string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r fakeProfiles) GetForUpdate(ctx context.Context, userID string) (*models.Profile, error) {
	return r.Get(ctx, userID)
}

func (r fakeProfiles) AddCredits(_ context.Context, userID string, amount int64) (int64, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return 0, 0, common.ErrorNotFound
	}
	if p.Credits+amount < 0 {
		return 0, 0, common.ErrInsufficientCredits
	}
	p.Credits += amount
	p.Version++
	return p.Credits, p.Version, nil
}

func (r fakeProfiles) MarkTrialUsed(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return 0, common.ErrorNotFound
	}
	if p.TrialUsed {
		return 0, common.ErrTrialUnavailable
	}
	p.TrialUsed = true
	p.Version++
	return p.Version, nil
}

func (r fakeProfiles) UpdateFullName(_ context.Context, userID, fullName string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	p.FullName = fullName
	p.Version++
	cp := *p
	return &cp, nil
}

type fakeCredits struct{ s *memStore }

func (r fakeCredits) Find(_ context.Context, userID, deltaID string) (*models.CreditDelta, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.deltas[userID+"/"+deltaID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r fakeCredits) Insert(_ context.Context, d *models.CreditDelta) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *d
	cp.CreatedAt = time.Now()
	r.s.deltas[d.UserID+"/"+d.ID] = &cp
	return nil
}

func (r fakeCredits) ListByUser(_ context.Context, userID string, limit int) ([]*models.CreditDelta, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.CreditDelta
	for _, d := range r.s.deltas {
		if d.UserID == userID && len(out) < limit {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeCheckouts struct{ s *memStore }

func (r fakeCheckouts) Create(_ context.Context, c *models.Checkout) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.checkouts[c.ID] = &cp
	return nil
}

func (r fakeCheckouts) Get(_ context.Context, id string) (*models.Checkout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.checkouts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (r fakeCheckouts) Complete(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.checkouts[id]
	if !ok {
		return false, common.ErrorNotFound
	}
	if c.Status == models.CheckoutCompleted {
		return false, nil
	}
	now := time.Now()
	c.Status = models.CheckoutCompleted
	c.CompletedAt = &now
	return true, nil
}

type fakeSubs struct{ s *memStore }

func (r fakeSubs) Upsert(_ context.Context, sub *models.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if old, ok := r.s.subs[sub.UserID]; ok {
		sub.ID = old.ID
	} else {
		sub.ID = uuid.NewString()
	}
	cp := *sub
	r.s.subs[sub.UserID] = &cp
	return nil
}

func (r fakeSubs) GetByUser(_ context.Context, userID string) (*models.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r fakeSubs) SetCancelAtPeriodEnd(_ context.Context, userID string, cancel bool) (*models.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	sub.CancelAtPeriodEnd = cancel
	cp := *sub
	return &cp, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type fakeTrials struct {
	available bool
	claimed   []string
	err       error
}

func (f *fakeTrials) Available(context.Context, string) (bool, error) { return f.available, f.err }

func (f *fakeTrials) Claim(_ context.Context, ip string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.claimed = append(f.claimed, ip)
	return true, nil
}

// env wires every service against one memStore.
type env struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	store    *memStore
	pub      *fakePublisher
	trials   *fakeTrials
	reg      *prometheus.Registry
	cfg      *config.Config
	users    *UserService
	profiles *ProfileService
	payments *PaymentService
}

func newEnv(t *testing.T, mutate ...func(*config.Config)) *env {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		PublicBaseURL:                "http://pay.local/",
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	e := &env{
		db:     db,
		mock:   mock,
		store:  newMemStore(),
		pub:    &fakePublisher{},
		trials: &fakeTrials{available: true},
		reg:    prometheus.NewRegistry(),
		cfg:    cfg,
	}
	rm := &fakeRepoManager{s: e.store}
	m := metrics.New(e.reg)
	log := logging.Nop()

	e.users = NewUserService(db, rm, cfg, e.pub, m, log)
	e.profiles = NewProfileService(db, rm, cfg, e.trials, e.pub, m, log)
	e.payments = NewPaymentService(db, rm, cfg, e.profiles, e.pub, m, log)
	return e
}

func (e *env) expectTx() {
	e.mock.ExpectBegin()
	e.mock.ExpectCommit()
}

func (e *env) expectRollback() {
	e.mock.ExpectBegin()
	e.mock.ExpectRollback()
}

// counter returns the value of the counter name whose labels include want.
func (e *env) counter(t *testing.T, name string, want map[string]string) float64 {
	t.Helper()
	families, err := e.reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
