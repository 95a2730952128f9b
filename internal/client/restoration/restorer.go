package restoration

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/client/models"
	"github.com/dmitrijs2005/photorestore/internal/netx"
)

// PlaceholderURL is returned for every restoration until a real model is
// wired in.
const PlaceholderURL = "https://images.pexels.com/photos/2781760/pexels-photo-2781760.jpeg?auto=compress&cs=tinysrgb&w=1260&h=750&dpr=1"

// UploadURLSource hands out presigned upload locations.
type UploadURLSource interface {
	CreateUploadURL(ctx context.Context, userID, fileName string) (*models.UploadTarget, error)
}

// Uploader stores originals through presigned URLs.
type Uploader struct {
	urls UploadURLSource
	put  func(ctx context.Context, url, contentType string, data []byte) error
}

func NewUploader(urls UploadURLSource) *Uploader {
	return &Uploader{urls: urls, put: netx.UploadToPresignedURL}
}

// Upload stores p and returns where it went.
func (u *Uploader) Upload(ctx context.Context, userID string, p Photo) (*models.UploadTarget, error) {
	target, err := u.urls.CreateUploadURL(ctx, userID, p.Name)
	if err != nil {
		return nil, fmt.Errorf("create upload url: %w", err)
	}
	if err := u.put(ctx, target.URL, p.ContentType, p.Data); err != nil {
		return nil, fmt.Errorf("upload %s: %w", p.Name, err)
	}
	return target, nil
}

// PlaceholderRestorer simulates processing: it waits Delay and returns
// ResultURL. With an Uploader set the original is stored first.
type PlaceholderRestorer struct {
	Delay     time.Duration
	ResultURL string
	Uploader  *Uploader
}

func NewPlaceholderRestorer(delay time.Duration, uploader *Uploader) *PlaceholderRestorer {
	return &PlaceholderRestorer{Delay: delay, ResultURL: PlaceholderURL, Uploader: uploader}
}

// Perform returns the gate callback restoring p on behalf of userID.
func (r *PlaceholderRestorer) Perform(userID string, p Photo) Perform {
	return func(ctx context.Context) (models.Artifact, error) {
		return r.Restore(ctx, userID, p)
	}
}

func (r *PlaceholderRestorer) Restore(ctx context.Context, userID string, p Photo) (models.Artifact, error) {
	art := models.Artifact{OriginalURL: "file://" + p.Name}

	if r.Uploader != nil && userID != "" {
		target, err := r.Uploader.Upload(ctx, userID, p)
		if err != nil {
			return models.Artifact{}, err
		}
		art.OriginalURL = target.Key
		if target.ViewURL != "" {
			art.OriginalURL = target.ViewURL
		}
	}

	if r.Delay > 0 {
		t := time.NewTimer(r.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return models.Artifact{}, ctx.Err()
		case <-t.C:
		}
	}

	art.RestoredURL = r.ResultURL
	return art, nil
}
