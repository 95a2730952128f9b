// Package cache keeps the advisory session record and the token pair in the
// local metadata table. Nothing read from here is authoritative: it only
// seeds startup until the backend answers.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/photorestore/internal/client/models"
	"github.com/dmitrijs2005/photorestore/internal/client/repositories/metadata"
)

const (
	SessionKey = "auth-storage"
	TokensKey  = "auth-tokens"
)

type Cache struct {
	repo metadata.Repository
}

func New(repo metadata.Repository) *Cache {
	return &Cache{repo: repo}
}

// LoadSession returns the cached record, or nil when none was saved.
func (c *Cache) LoadSession(ctx context.Context) (*models.CachedSession, error) {
	var s models.CachedSession
	ok, err := c.load(ctx, SessionKey, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (c *Cache) SaveSession(ctx context.Context, s models.CachedSession) error {
	return c.save(ctx, SessionKey, s)
}

type tokenRecord struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoadTokens returns the stored pair; a zero pair means none.
func (c *Cache) LoadTokens(ctx context.Context) (models.TokenPair, error) {
	var rec tokenRecord
	if _, err := c.load(ctx, TokensKey, &rec); err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{UserID: rec.UserID, AccessToken: rec.AccessToken, RefreshToken: rec.RefreshToken}, nil
}

func (c *Cache) SaveTokens(ctx context.Context, p models.TokenPair) error {
	return c.save(ctx, TokensKey, tokenRecord{UserID: p.UserID, AccessToken: p.AccessToken, RefreshToken: p.RefreshToken})
}

// Clear drops the session record and the tokens.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.repo.Delete(ctx, SessionKey); err != nil {
		return err
	}
	return c.repo.Delete(ctx, TokensKey)
}

func (c *Cache) load(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.repo.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.repo.Set(ctx, key, data)
}
