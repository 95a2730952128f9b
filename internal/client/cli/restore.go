package cli

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/client/models"
	"github.com/dmitrijs2005/photorestore/internal/client/restoration"
	"github.com/dmitrijs2005/photorestore/internal/common"
)

// loadPhoto is a test seam.
var loadPhoto = restoration.LoadPhoto

func (a *App) photoArg(args []string) (restoration.Photo, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		var err error
		if path, err = getSimpleText(a.reader, "Path to the photo", a.out); err != nil {
			return restoration.Photo{}, err
		}
	}
	return loadPhoto(path)
}

// Restore spends one credit to restore the photo at args[0].
func (a *App) Restore(ctx context.Context, args []string) error {
	photo, err := a.photoArg(args)
	if err != nil {
		return a.report(err)
	}

	a.printf("Restoring %s...\n", photo.Name)
	art, err := a.gate.AttemptRestoration(ctx, a.restorer.Perform(a.store.UserID(), photo))
	if err != nil {
		a.report(err)
		if errors.Is(err, common.ErrInsufficientCredits) {
			a.printf("Type 'plans' to see what you can buy.\n")
		}
		return err
	}

	a.printArtifact(art)
	a.printf("Credits left: %d\n", a.store.State().Entitlement.Credits)
	return nil
}

// Trial restores one photo for free.
func (a *App) Trial(ctx context.Context, args []string) error {
	photo, err := a.photoArg(args)
	if err != nil {
		return a.report(err)
	}

	a.printf("Restoring %s with your free trial...\n", photo.Name)
	art, err := a.gate.AttemptTrial(ctx, a.restorer.Perform(a.store.UserID(), photo))
	if err != nil {
		return a.report(err)
	}

	a.printArtifact(art)
	if !a.isLoggedIn() {
		a.printf("Liked it? Register to restore more photos.\n")
	}
	return nil
}

func (a *App) printArtifact(art models.Artifact) {
	a.printf("Original: %s\n", art.OriginalURL)
	a.printf("Restored: %s\n", art.RestoredURL)
}

func (a *App) History(ctx context.Context) error {
	jobs := a.gate.History().List()
	if len(jobs) == 0 {
		a.printf("No restorations yet.\n")
		return nil
	}

	for _, j := range jobs {
		kind := "paid"
		if j.Trial {
			kind = "trial"
		}
		line := j.RequestedAt.Format(time.DateTime) + "  " + kind + "  " + string(j.Outcome)
		if j.Artifact != nil {
			line += "  " + j.Artifact.RestoredURL
		}
		a.printf("%s\n", line)
	}
	return nil
}
