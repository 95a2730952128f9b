// Package services contains server-side business logic: accounts and tokens,
// the authoritative credit ledger, trials, payments and photo storage.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/dbx"
	"github.com/dmitrijs2005/photorestore/internal/logging"
	"github.com/dmitrijs2005/photorestore/internal/server/auth"
	"github.com/dmitrijs2005/photorestore/internal/server/config"
	"github.com/dmitrijs2005/photorestore/internal/server/events"
	"github.com/dmitrijs2005/photorestore/internal/server/metrics"
	"github.com/dmitrijs2005/photorestore/internal/server/models"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is lowered by tests.
var bcryptCost = bcrypt.DefaultCost

// TokenPair bundles a short-lived access token and a long-lived refresh token
// issued to UserID.
type TokenPair struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

type signUpInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=6,max=72"`
	FullName string `validate:"max=200"`
}

// UserService handles registration, sign-in and token rotation.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	validate                     *validator.Validate
	events                       events.Publisher
	metrics                      *metrics.Metrics
	log                          logging.Logger

	// dummyHash is compared against when the email is unknown, so both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, ev events.Publisher, mt *metrics.Metrics, log logging.Logger) *UserService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("photorestore-dummy-password"), bcryptCost)
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		validate:                     validator.New(),
		events:                       ev,
		metrics:                      mt,
		log:                          log.With("module", "user_service"),
		dummyHash:                    dummy,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates the account and its empty profile in one transaction and
// signs the user in.
func (s *UserService) SignUp(ctx context.Context, email, password, fullName string) (*TokenPair, error) {
	in := signUpInput{Email: normalizeEmail(email), Password: password, FullName: strings.TrimSpace(fullName)}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	pair, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*TokenPair, error) {
		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{Email: in.Email, PasswordHash: hash})
		if err != nil {
			return nil, err
		}
		if _, err := s.repomanager.Profiles(tx).Create(ctx, u.ID, in.FullName); err != nil {
			return nil, err
		}
		return s.generateTokenPair(ctx, u.ID, tx)
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.metrics.SignUps.Inc()
	s.log.Info(ctx, "user registered", "user_id", pair.UserID)
	if err := s.events.Publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID: pair.UserID, Email: in.Email, OccurredAt: time.Now().UTC(),
	}); err != nil {
		s.log.Warn(ctx, "failed to publish event", "event", events.UserRegistered, "error", err)
	}
	return pair, nil
}

// SignIn verifies the password and returns a new TokenPair. Unknown emails and
// wrong passwords both yield common.ErrorUnauthorized.
func (s *UserService) SignIn(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			s.metrics.SignIns.WithLabelValues("failed").Inc()
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		s.metrics.SignIns.WithLabelValues("failed").Inc()
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, user.ID, s.db)
	if err != nil {
		return nil, err
	}
	s.metrics.SignIns.WithLabelValues("ok").Inc()
	return pair, nil
}

// SignOut revokes refreshToken. Unknown tokens are not an error.
func (s *UserService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*TokenPair, error) {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return nil, fmt.Errorf("error deleting refresh token: %w", err)
		}
		return s.generateTokenPair(ctx, token.UserID, tx)
	})
}

// PurgeExpiredTokens removes refresh tokens that can no longer be used.
func (s *UserService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, time.Now())
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{UserID: userID, AccessToken: access, RefreshToken: refresh}, nil
}
