package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/ace/internal/client/api"
	"github.com/dmitrijs2005/ace/internal/client/config"
	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/client/resultcache"
	"github.com/dmitrijs2005/ace/internal/client/router"
	"github.com/dmitrijs2005/ace/internal/client/services"
	"github.com/dmitrijs2005/ace/internal/client/session"
	"github.com/dmitrijs2005/ace/internal/client/storage"
	"github.com/dmitrijs2005/ace/internal/client/tokenstore"
	"github.com/dmitrijs2005/ace/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// pingTimeout bounds a single liveness probe.
const pingTimeout = 3 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger

	db      *sql.DB
	watcher *storage.Watcher
	tokens  *tokenstore.Store
	nav     *router.Navigator
	session *session.Manager

	authService      services.AuthService
	searchService    services.SearchService
	imageService     services.ImageService
	dashboardService services.DashboardService

	notifier *Notifier
	reader   *bufio.Reader
	out      io.Writer

	// local is set while a command of this process changes the session, so
	// only foreign changes are announced.
	local atomic.Bool

	modeMu sync.Mutex
	Mode   Mode

	unsubscribe func()
}

// NewApp opens the shared store and wires every client component. The
// session is hydrated from storage before NewApp returns.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := storage.Open(ctx, c.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	a, err := newApp(ctx, c, logger, db, os.Stdin, os.Stdout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, in io.Reader, out io.Writer) (*App, error) {
	a := &App{
		config:   c,
		logger:   logger.With("component", "cli"),
		db:       db,
		notifier: NewNotifier(out),
		reader:   bufio.NewReader(in),
		out:      out,
	}

	repo := storage.NewSQLiteRepository(db)
	a.watcher = storage.NewWatcher(repo, c.WatchInterval, logger)
	if err := a.watcher.Prime(ctx); err != nil {
		return nil, fmt.Errorf("priming storage watcher: %w", err)
	}
	a.tokens = tokenstore.New(repo, a.watcher, logger)

	table := router.NewTable()
	a.nav = router.NewNavigator(table, router.MustLocation(router.PathHome), logger)

	client, err := api.New(c.APIBaseURL, a.tokens, a.nav,
		api.WithTimeout(c.RequestTimeout),
		api.WithLogger(logger),
		api.OnUnauthorized(func(ctx context.Context) {
			a.asLocal(func() { a.session.Expire(ctx) })
		}),
	)
	if err != nil {
		return nil, err
	}

	a.session = session.NewManager(ctx, a.tokens, client, logger)
	a.nav.SetGuard(router.NewGuard(table, a.session, a.tokens, logger))
	a.unsubscribe = a.session.Subscribe(a.onSessionChange)

	searchCache, err := resultcache.New[models.SearchItem](repo, resultcache.FeatureSearch, logger)
	if err != nil {
		return nil, err
	}
	imageCache, err := resultcache.New[models.Image](repo, resultcache.FeatureImage, logger)
	if err != nil {
		return nil, err
	}

	a.authService = services.NewAuthService(a.session, client, logger)
	a.searchService = services.NewSearchService(client, searchCache, logger)
	a.imageService = services.NewImageService(client, imageCache, logger)
	a.dashboardService = services.NewDashboardService(client, logger)
	return a, nil
}

// Close stops session tracking and closes the store.
func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.session.Close()
	return a.db.Close()
}

func (a *App) onSessionChange(st session.State) {
	if a.local.Load() {
		return
	}
	if st.IsAuthenticated() {
		a.notifier.Notice("Logged in from another window (%s).", roleLabel(st.Role))
		return
	}
	a.notifier.Notice("Logged out from another window.")
}

// asLocal runs fn with session notifications from this process muted.
func (a *App) asLocal(fn func()) {
	a.local.Store(true)
	defer a.local.Store(false)
	fn()
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		a.logger.Info(ctx, "switched mode", "mode", mode)
	}
}

func (a *App) mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.Mode
}

// StartOnlineStatusWatcher probes the backend every interval and flips Mode
// between online and offline. It returns when ctx is done.
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
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.authService.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ctx, ModeOffline)
	} else {
		a.setMode(ctx, ModeOnline)
	}
}

// Run starts the storage and online watchers and the REPL. It returns when
// the user exits or ctx is cancelled; a REPL blocked on input is abandoned
// in the latter case.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.checkOnline(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.watcher.Run(gctx)
	})
	g.Go(func() error {
		a.StartOnlineStatusWatcher(gctx, a.config.OnlineCheckInterval)
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		printlnFn("Welcome to ace (type 'help' for commands)")
		runREPL(gctx, a, a.getStatus, a.reader)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	cancel()
	return g.Wait()
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) getStatus() string {
	s := ""
	if a.isLoggedIn() {
		s = roleLabel(a.session.Role()) + " "
	}
	if m := a.mode(); m != "" {
		s += string(m) + " "
	}
	return fmt.Sprintf("(%s%s)", s, a.nav.CurrentPath())
}

func roleLabel(r session.Role) string {
	if r == "" {
		return "user"
	}
	return string(r)
}
