package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/photorestore/internal/client/models"
	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/netx"
)

// visitURL completes a hosted checkout in development setups.
var visitURL = netx.Visit

func formatPrice(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}

func (a *App) Plans(ctx context.Context) error {
	plans, err := a.api.ListPlans(ctx)
	if err != nil {
		return a.report(err)
	}

	for i, p := range plans {
		price := formatPrice(p.PriceCents, p.Currency)
		if p.Mode == models.PlanModeSubscription {
			price += " / month"
		}
		star := ""
		if p.Popular {
			star = " *"
		}
		a.printf("%d. %s%s [%s]\n   %s, %d credits. %s\n", i+1, p.Name, star, p.ID, price, p.Credits, p.Description)
	}
	return nil
}

// pickPlan resolves a plan by list position or id.
func pickPlan(plans []models.Plan, choice string) (models.Plan, bool) {
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(plans) {
		return plans[n-1], true
	}
	for _, p := range plans {
		if p.ID == choice {
			return p, true
		}
	}
	return models.Plan{}, false
}

// Buy starts a hosted checkout for a plan. Credits arrive once the backend
// has been notified of the payment, so the balance is refreshed afterwards.
func (a *App) Buy(ctx context.Context, args []string) error {
	userID := a.store.UserID()
	if userID == "" {
		return a.report(common.ErrNotAuthenticated)
	}

	plans, err := a.api.ListPlans(ctx)
	if err != nil {
		return a.report(err)
	}

	choice := ""
	if len(args) > 0 {
		choice = args[0]
	} else {
		if err := a.Plans(ctx); err != nil {
			return err
		}
		if choice, err = getSimpleText(a.reader, "Choose a plan (number or id)", os.Stdout); err != nil {
			return err
		}
	}

	plan, ok := pickPlan(plans, choice)
	if !ok {
		a.printf("Unknown plan %q\n", choice)
		return fmt.Errorf("unknown plan %q", choice)
	}

	co, err := a.api.CreateCheckout(ctx, userID, plan.ID)
	if err != nil {
		return a.report(err)
	}
	a.printf("Complete your purchase of %s at:\n  %s\n", plan.Name, co.URL)

	pay, err := getConfirmation(a.reader, "Open the checkout now?", os.Stdout)
	if err != nil {
		return err
	}
	if !pay {
		a.printf("Type 'refresh' once you have paid.\n")
		return nil
	}

	if err := visitURL(ctx, co.URL); err != nil {
		a.log.Warn(ctx, "checkout failed", "session_id", co.SessionID, "error", err)
		return a.report(fmt.Errorf("%w: %w", common.ErrNetworkOrBackend, err))
	}
	return a.Refresh(ctx)
}

func (a *App) Subscription(ctx context.Context) error {
	userID := a.store.UserID()
	if userID == "" {
		return a.report(common.ErrNotAuthenticated)
	}

	sub, err := a.api.GetSubscription(ctx, userID)
	if err != nil {
		return a.report(err)
	}
	a.printSubscription(sub)
	return nil
}

func (a *App) printSubscription(sub *models.Subscription) {
	if sub == nil {
		a.printf("No subscription.\n")
		return
	}

	a.printf("Plan:   %s\n", sub.PlanID)
	a.printf("Status: %s\n", sub.Status)
	if !sub.CurrentPeriodEnd.IsZero() {
		label := "Renews"
		if sub.CancelAtPeriodEnd {
			label = "Ends"
		}
		a.printf("%s:  %s\n", label, sub.CurrentPeriodEnd.Format("2006-01-02"))
	}
}

// Cancel stops the subscription at the end of the current period.
func (a *App) Cancel(ctx context.Context) error {
	userID := a.store.UserID()
	if userID == "" {
		return a.report(common.ErrNotAuthenticated)
	}

	sure, err := getConfirmation(a.reader, "Cancel your subscription at the end of the period?", os.Stdout)
	if err != nil || !sure {
		return err
	}

	sub, err := a.api.CancelSubscription(ctx, userID)
	if err != nil {
		return a.report(err)
	}
	a.printSubscription(sub)
	return nil
}
