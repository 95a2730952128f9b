package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/client/config"
	"github.com/dmitrijs2005/photorestore/internal/client/models"
	"github.com/dmitrijs2005/photorestore/internal/logging"
)

// fakeAPI is an in-memory backend. A successful sign-in makes identity
// current until SignOut.
type fakeAPI struct {
	mu sync.Mutex

	signInErr error
	identity  *models.Identity
	signedIn  bool
	credits   int64
	trialUsed bool
	version   int64

	trialAvailable bool
	plans          []models.Plan
	checkout       *models.Checkout
	lastPlanID     string
	sub            *models.Subscription
	canceled       bool
	pingErr        error
	pings          int
	closed         bool
	deltas         []int64
}

func (f *fakeAPI) SignIn(ctx context.Context, email, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return f.signInErr
	}
	f.signedIn = true
	return nil
}

func (f *fakeAPI) SignUp(ctx context.Context, email, password, fullName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity = &models.Identity{ID: "u-new", Email: email, FullName: fullName}
	f.signedIn = true
	f.version = 1
	return nil
}

func (f *fakeAPI) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedIn = false
	return nil
}

func (f *fakeAPI) GetCurrentIdentity(ctx context.Context) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.signedIn || f.identity == nil {
		return nil, nil
	}
	id := *f.identity
	return &id, nil
}

func (f *fakeAPI) FetchEntitlement(ctx context.Context, userID string) (models.EntitlementSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.EntitlementSnapshot{
		Entitlement: models.Entitlement{Credits: f.credits, TrialUsed: f.trialUsed},
		Version:     f.version,
		FetchedAt:   time.Now(),
	}, nil
}

func (f *fakeAPI) PersistCreditDelta(ctx context.Context, userID, deltaID string, amount int64, reason string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits += amount
	f.version++
	f.deltas = append(f.deltas, amount)
	return f.version, nil
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, userID, fullName string) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity.FullName = fullName
	id := *f.identity
	return &id, nil
}

func (f *fakeAPI) TrialAvailable(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trialAvailable, nil
}

func (f *fakeAPI) ClaimTrial(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trialUsed = true
	f.trialAvailable = false
	f.version++
	return f.version, nil
}

func (f *fakeAPI) ListPlans(ctx context.Context) ([]models.Plan, error) {
	return f.plans, nil
}

func (f *fakeAPI) CreateCheckout(ctx context.Context, userID, planID string) (*models.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPlanID = planID
	return f.checkout, nil
}

func (f *fakeAPI) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	return f.sub, nil
}

func (f *fakeAPI) CancelSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	f.canceled = true
	f.sub.CancelAtPeriodEnd = true
	return f.sub, nil
}

func (f *fakeAPI) CreateUploadURL(ctx context.Context, userID, fileName string) (*models.UploadTarget, error) {
	return &models.UploadTarget{Key: "originals/" + userID + "/" + fileName, URL: "http://s3.invalid/put"}, nil
}

func (f *fakeAPI) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeAPI) Close() error {
	f.closed = true
	return nil
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

var catalog = []models.Plan{
	{ID: "club", Name: "Membresía Club Restaurador", PriceCents: 990, Currency: "eur", Mode: models.PlanModeSubscription, Credits: 5, Popular: true},
	{ID: "pack10", Name: "Paquete de 10 Restauraciones", PriceCents: 990, Currency: "eur", Mode: models.PlanModePayment, Credits: 10},
}

func readerFromLines(lines ...string) *bufio.Reader {
	if len(lines) == 0 || lines[len(lines)-1] != "" {
		lines = append(lines, "")
	}
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.RequestTimeout = time.Second
	cfg.ProfileRetryAttempts = 2
	cfg.ProfileRetryDelay = time.Millisecond
	cfg.RestorationDelay = 0
	return cfg
}

func newTestApp(api *fakeAPI, reader *bufio.Reader) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	if reader == nil {
		reader = readerFromLines()
	}
	a := newApp(testConfig(), api, nil, logging.Nop(), reader, &out)
	a.restorer.Uploader = nil
	return a, &out
}

// stubInputs replaces the interactive prompts. Answers to getSimpleText are
// consumed in order.
func stubInputs(t *testing.T, password string, answers ...string) {
	t.Helper()
	origST, origGP, origGC := getSimpleText, getPassword, getConfirmation
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	getPassword = func(_ io.Writer) ([]byte, error) { return []byte(password), nil }
	getConfirmation = func(_ *bufio.Reader, _ string, _ io.Writer) (bool, error) {
		if len(answers) == 0 {
			return false, nil
		}
		a := answers[0]
		answers = answers[1:]
		return a == "y", nil
	}
	t.Cleanup(func() {
		getSimpleText, getPassword, getConfirmation = origST, origGP, origGC
	})
}

func signedIn(t *testing.T, api *fakeAPI) (*App, *bytes.Buffer) {
	t.Helper()
	if api.identity == nil {
		api.identity = &models.Identity{ID: "u1", Email: "ana@example.com", FullName: "Ana"}
	}
	if api.version == 0 {
		api.version = 1
	}
	a, out := newTestApp(api, nil)
	stubInputs(t, "secret", "ana@example.com")
	if err := a.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
	out.Reset()
	return a, out
}
