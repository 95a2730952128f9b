package restoration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/client/entitlement"
	"github.com/dmitrijs2005/photorestore/internal/client/models"
	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/logging"
	"github.com/google/uuid"
)

// Session is the part of the session store the gate depends on.
type Session interface {
	IsAuthenticated() bool
	TrialUsed() bool
	Reserve() (entitlement.Reservation, bool)
	Release(ctx context.Context, r entitlement.Reservation) error
	Commit(ctx context.Context, r entitlement.Reservation) error
	MarkTrialUsed(ctx context.Context) error
}

type TrialChecker interface {
	TrialAvailable(ctx context.Context) (bool, error)
}

// Perform does the actual restoration work.
type Perform func(ctx context.Context) (models.Artifact, error)

type Gate struct {
	session Session
	trials  TrialChecker
	history *History
	log     logging.Logger

	trialMu      sync.Mutex
	trialRunning bool

	now   func() time.Time
	newID func() string
}

// NewGate creates a gate. history may be nil.
func NewGate(session Session, trials TrialChecker, history *History, log logging.Logger) *Gate {
	if history == nil {
		history = NewHistory(0)
	}
	return &Gate{
		session: session,
		trials:  trials,
		history: history,
		log:     log.With("module", "restoration"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (g *Gate) History() *History {
	return g.history
}

// AttemptRestoration charges one credit for perform. The credit is released
// before the error is returned when perform fails.
func (g *Gate) AttemptRestoration(ctx context.Context, perform Perform) (models.Artifact, error) {
	if !g.session.IsAuthenticated() {
		return models.Artifact{}, common.ErrNotAuthenticated
	}

	attempt := models.RestorationAttempt{ID: g.newID(), RequestedAt: g.now()}

	res, ok := g.session.Reserve()
	if !ok {
		attempt.Outcome = models.OutcomeDeniedInsufficient
		attempt.FinishedAt = g.now()
		attempt.Err = common.ErrInsufficientCredits
		g.history.Add(attempt)
		return models.Artifact{}, common.ErrInsufficientCredits
	}

	attempt.Outcome = models.OutcomeGrantedPending
	g.history.Add(attempt)
	g.log.Debug(ctx, "restoration granted", "attempt_id", attempt.ID)

	art, err := run(ctx, perform)
	if err != nil {
		if rerr := g.session.Release(ctx, res); rerr != nil {
			g.log.Error(ctx, "failed to release reservation", "attempt_id", attempt.ID, "error", rerr)
		}
		err = fmt.Errorf("%w: %w", common.ErrProcessingFailed, err)
		g.finish(attempt.ID, models.OutcomeFailedRestored, nil, err)
		g.log.Warn(ctx, "restoration failed", "attempt_id", attempt.ID, "error", err)
		return models.Artifact{}, err
	}

	if cerr := g.session.Commit(ctx, res); cerr != nil {
		g.log.Error(ctx, "failed to commit reservation", "attempt_id", attempt.ID, "error", cerr)
	}
	g.finish(attempt.ID, models.OutcomeSucceeded, &art, nil)
	return art, nil
}

// AttemptTrial runs perform once for free. The backend decides availability
// by caller address; a signed-in user must also not have used the trial yet.
func (g *Gate) AttemptTrial(ctx context.Context, perform Perform) (models.Artifact, error) {
	authed := g.session.IsAuthenticated()
	if authed && g.session.TrialUsed() {
		return models.Artifact{}, common.ErrTrialUnavailable
	}

	g.trialMu.Lock()
	if g.trialRunning {
		g.trialMu.Unlock()
		return models.Artifact{}, common.ErrTrialUnavailable
	}
	g.trialRunning = true
	g.trialMu.Unlock()
	defer func() {
		g.trialMu.Lock()
		g.trialRunning = false
		g.trialMu.Unlock()
	}()

	available, err := g.trials.TrialAvailable(ctx)
	if err != nil {
		return models.Artifact{}, err
	}
	if !available {
		return models.Artifact{}, common.ErrTrialUnavailable
	}

	attempt := models.RestorationAttempt{
		ID:          g.newID(),
		RequestedAt: g.now(),
		Trial:       true,
		Outcome:     models.OutcomeGrantedPending,
	}
	g.history.Add(attempt)

	art, err := run(ctx, perform)
	if err != nil {
		err = fmt.Errorf("%w: %w", common.ErrProcessingFailed, err)
		g.finish(attempt.ID, models.OutcomeFailed, nil, err)
		return models.Artifact{}, err
	}

	if authed {
		if merr := g.session.MarkTrialUsed(ctx); merr != nil {
			g.log.Error(ctx, "failed to record trial use", "attempt_id", attempt.ID, "error", merr)
		}
	}
	g.finish(attempt.ID, models.OutcomeSucceeded, &art, nil)
	return art, nil
}

func (g *Gate) finish(id string, outcome models.Outcome, art *models.Artifact, err error) {
	finished := g.now()
	g.history.Update(id, func(a *models.RestorationAttempt) {
		a.Outcome = outcome
		a.Artifact = art
		a.Err = err
		a.FinishedAt = finished
	})
}

// run calls perform, turning a panic into an error.
func run(ctx context.Context, perform Perform) (art models.Artifact, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("restoration panicked: %v", p)
		}
	}()
	return perform(ctx)
}
