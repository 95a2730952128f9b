package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/client/cache"
	"github.com/dmitrijs2005/photorestore/internal/client/client"
	"github.com/dmitrijs2005/photorestore/internal/client/config"
	"github.com/dmitrijs2005/photorestore/internal/client/entitlement"
	"github.com/dmitrijs2005/photorestore/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/photorestore/internal/client/restoration"
	"github.com/dmitrijs2005/photorestore/internal/client/session"
	"github.com/dmitrijs2005/photorestore/internal/client/storage"
	"github.com/dmitrijs2005/photorestore/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	api      client.Client
	store    *session.Store
	gate     *restoration.Gate
	restorer *restoration.PlaceholderRestorer
	db       *sql.DB

	mu   sync.Mutex
	Mode Mode

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	log := logging.New(os.Stderr, "text", c.LogLevel)

	db, err := storage.InitDatabase(ctx, c.CacheDSN)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	kv := cache.New(metadata.NewSQLiteRepository(db))

	api, err := client.NewGRPCClient(c.ServerEndpointAddr, kv, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := newApp(c, api, kv, log, bufio.NewReader(os.Stdin), os.Stdout)
	a.db = db
	return a, nil
}

// newApp assembles the session core around api. It is shared with tests.
func newApp(c *config.Config, api client.Client, kv session.Cache, log logging.Logger, reader *bufio.Reader, out io.Writer) *App {
	store := session.NewStore(api, kv, entitlement.NewLedger(), log, session.Options{
		RequestTimeout:       c.RequestTimeout,
		ProfileRetryAttempts: c.ProfileRetryAttempts,
		ProfileRetryDelay:    c.ProfileRetryDelay,
	})

	return &App{
		config:   c,
		log:      log.With("module", "cli"),
		api:      api,
		store:    store,
		gate:     restoration.NewGate(store, api, restoration.NewHistory(0), log),
		restorer: restoration.NewPlaceholderRestorer(c.RestorationDelay, restoration.NewUploader(api)),
		reader:   reader,
		out:      out,
	}
}

func (a *App) setMode(ctx context.Context, mode Mode) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Mode == mode {
		return false
	}
	a.Mode = mode
	a.log.Info(ctx, "connectivity changed", "mode", mode)
	return true
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

func (a *App) Run(ctx context.Context) {
	defer a.close()
	a.Root(ctx)
}

func (a *App) close() {
	if err := a.api.Close(); err != nil {
		a.log.Warn(context.Background(), "failed to close connection", "error", err)
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.store.IsAuthenticated()
}

// StartOnlineStatusWatcher pings the backend every interval. Coming back
// online refreshes the signed-in user's data.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.api.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	if a.setMode(ctx, ModeOnline) && a.isLoggedIn() {
		if err := a.store.RefreshUserData(ctx); err != nil {
			a.log.Warn(ctx, "refresh after reconnect failed", "error", err)
		}
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
