package cache

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/photorestore/internal/client/models"
	"github.com/dmitrijs2005/photorestore/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/photorestore/internal/client/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*Cache, *metadata.SQLiteRepository) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.RunMigrations(context.Background(), db))

	repo := metadata.NewSQLiteRepository(db)
	return New(repo), repo
}

func TestSession_RoundTrip(t *testing.T) {
	c, repo := newCache(t)
	ctx := context.Background()

	s, err := c.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	in := models.CachedSession{
		Identity:        &models.Identity{ID: "u1", Email: "ana@example.com", FullName: "Ana"},
		Credits:         3,
		TrialUsed:       true,
		IsAuthenticated: true,
		Version:         7,
	}
	require.NoError(t, c.SaveSession(ctx, in))

	out, err := c.LoadSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in, *out)

	raw, err := repo.Get(ctx, SessionKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"identity":{"id":"u1","email":"ana@example.com","fullName":"Ana"},"credits":3,"trialUsed":true,"isAuthenticated":true,"version":7}`, string(raw))
}

func TestTokens_RoundTripAndClear(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	p, err := c.LoadTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, p)

	require.NoError(t, c.SaveTokens(ctx, models.TokenPair{UserID: "u1", AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, c.SaveSession(ctx, models.CachedSession{IsAuthenticated: true}))

	p, err = c.LoadTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r", p.RefreshToken)

	require.NoError(t, c.Clear(ctx))

	p, err = c.LoadTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, p)
	s, err := c.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestLoadSession_CorruptRecord(t *testing.T) {
	c, repo := newCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, SessionKey, []byte("{not json")))

	_, err := c.LoadSession(ctx)
	require.ErrorContains(t, err, "decode auth-storage")
}
