package cli

import (
	"context"
	"errors"
	"os"

	"github.com/dmitrijs2005/photorestore/internal/common"
)

// getSimpleText, getPassword and getConfirmation are indirections used to
// facilitate testing.
var (
	getSimpleText   = GetSimpleText
	getPassword     = GetPassword
	getConfirmation = GetConfirmation
)

// report prints the user-facing message for err and returns it.
func (a *App) report(err error) error {
	if err == nil {
		return nil
	}
	a.log.Debug(context.Background(), "command failed", "error", err)
	a.printf("%s\n", common.UserMessage(err))
	return err
}

func (a *App) credentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// Register prompts for email, password and an optional full name and creates
// the account. The new user is signed in once the backend profile exists.
func (a *App) Register(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	fullName, err := getSimpleText(a.reader, "Enter full name (optional)", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.store.Register(ctx, email, string(password), fullName); err != nil {
		return a.report(err)
	}

	a.printf("Welcome, %s!\n", email)
	return nil
}

// Login prompts for credentials and signs in.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.store.Login(ctx, email, string(password)); err != nil {
		return a.report(err)
	}

	st := a.store.State()
	a.printf("Signed in as %s. Credits: %d\n", st.Identity.Email, st.Entitlement.Credits)
	return nil
}

// Logout always succeeds locally; remote failures are only logged.
func (a *App) Logout(ctx context.Context) error {
	if err := a.store.Logout(ctx); err != nil {
		return a.report(err)
	}
	a.gate.History().Clear()
	a.printf("Signed out.\n")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st := a.store.State()
	if !st.IsAuthenticated {
		a.printf("Not signed in.\n")
		return nil
	}

	a.printf("Email:     %s\n", st.Identity.Email)
	if st.Identity.FullName != "" {
		a.printf("Name:      %s\n", st.Identity.FullName)
	}
	a.printf("Credits:   %d\n", st.Entitlement.Credits)
	a.printf("Trial:     %s\n", map[bool]string{true: "used", false: "available"}[st.Entitlement.TrialUsed])
	if pending, open := a.store.Unsettled(); pending+open > 0 {
		a.printf("Unsynced:  %d change(s), %d restoration(s) in progress\n", pending, open)
	}
	if m := a.mode(); m != "" {
		a.printf("Mode:      %s\n", m)
	}
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.store.RefreshUserData(ctx); err != nil {
		return a.report(err)
	}
	a.printf("Credits: %d\n", a.store.State().Entitlement.Credits)
	return nil
}

// Profile changes the full name of the signed-in user.
func (a *App) Profile(ctx context.Context) error {
	if !a.isLoggedIn() {
		return a.report(common.ErrNotAuthenticated)
	}

	name, err := getSimpleText(a.reader, "Enter full name", os.Stdout)
	if err != nil {
		return err
	}
	if name == "" {
		return errors.New("empty name")
	}

	if err := a.store.UpdateProfile(ctx, name); err != nil {
		return a.report(err)
	}
	a.printf("Profile updated.\n")
	return nil
}
