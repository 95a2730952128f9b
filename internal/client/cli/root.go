package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) getStatus() string {
	parts := make([]string, 0, 3)
	st := a.store.State()
	if st.IsAuthenticated {
		parts = append(parts, st.Identity.Email, fmt.Sprintf("%dcr", st.Entitlement.Credits))
	}
	if m := a.mode(); m != "" {
		parts = append(parts, string(m))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (a *App) Root(ctx context.Context) {
	a.printf("Welcome to photorestore (type 'help' for commands)\n")

	if err := a.store.CheckSession(ctx); err != nil {
		a.report(err)
		a.store.ClearError()
	} else if st := a.store.State(); st.IsAuthenticated {
		a.printf("Signed in as %s\n", st.Identity.Email)
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}
