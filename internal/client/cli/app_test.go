package cli

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ace/internal/client/config"
	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/client/router"
	"github.com/dmitrijs2005/ace/internal/client/storage"
	"github.com/dmitrijs2005/ace/internal/client/tokenstore"
	"github.com/dmitrijs2005/ace/internal/logging"
	"github.com/dmitrijs2005/ace/internal/testutil/fakeapi"
)

// syncBuffer is written by the REPL and the watchers at the same time.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

type env struct {
	srv    *fakeapi.Server
	dbPath string
	cfg    *config.Config
}

func newEnv(t *testing.T) *env {
	t.Helper()
	stubTerminal(t, false, nil, nil)
	capturePrintln(t)

	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	srv.AddUser("a@b.com", "secret1", "user")

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.APIBaseURL = srv.URL
	cfg.StoragePath = filepath.Join(t.TempDir(), "ace.db")
	cfg.OnlineCheckInterval = 20 * time.Millisecond
	cfg.WatchInterval = 10 * time.Millisecond

	return &env{srv: srv, dbPath: cfg.StoragePath, cfg: cfg}
}

func (e *env) openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), e.dbPath)
	require.NoError(t, err)
	return db
}

// persistLogin stores a valid token the way an earlier session would have.
func (e *env) persistLogin(t *testing.T) {
	t.Helper()
	db := e.openDB(t)
	defer db.Close()
	tokens := tokenstore.New(storage.NewSQLiteRepository(db), nil, logging.Discard())
	tokens.Set(context.Background(), e.srv.IssueToken("a@b.com"), "user")
}

// newApp starts one client process reading lines from in.
func (e *env) newApp(t *testing.T, in string) (*App, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	a, err := newApp(context.Background(), e.cfg, logging.Discard(), e.openDB(t), strings.NewReader(in), out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, out
}

func lines(l ...string) string {
	return strings.Join(l, "\n") + "\n"
}

func repl(a *App) {
	runREPL(context.Background(), a, a.getStatus, a.reader)
}

func TestApp_LoginSearchSaveAndList(t *testing.T) {
	e := newEnv(t)
	a, out := e.newApp(t, lines(
		"login", "a@b.com", "secret1",
		"search golang",
		"save",
		"save",
		"dashboard",
		"exit",
	))

	repl(a)

	s := out.String()
	assert.Contains(t, s, "Logged in as user.")
	assert.Contains(t, s, `Results for "golang":`)
	assert.Contains(t, s, "About golang")
	assert.Contains(t, s, "Saved to dashboard")
	assert.Contains(t, s, "Already saved.")
	assert.Contains(t, s, "Results for: golang  | About golang")
	assert.Contains(t, s, "Page 1 of 1")
	assert.Equal(t, 1, e.srv.EntryCount("a@b.com", models.EntryTypeSearch))
	assert.Equal(t, router.PathDashboard, a.nav.CurrentPath())
}

func TestApp_FailedLoginStaysOnLogin(t *testing.T) {
	e := newEnv(t)
	a, out := e.newApp(t, lines("login", "a@b.com", "wrong", "exit"))

	repl(a)

	assert.Contains(t, out.String(), "! Invalid email or password")
	assert.False(t, a.isLoggedIn())
	assert.Equal(t, router.PathLogin, a.nav.CurrentPath())
}

func TestApp_GuardSendsToLoginAndBack(t *testing.T) {
	e := newEnv(t)
	e.srv.SeedImage("a@b.com", "red fox", []models.Image{{URL: "https://img.test/fox.png"}})
	a, out := e.newApp(t, lines("dashboard image", "a@b.com", "secret1", "exit"))

	repl(a)

	s := out.String()
	assert.Contains(t, s, "* Please log in to continue to /dashboard.")
	assert.Contains(t, s, "red fox  | https://img.test/fox.png")

	cur := a.nav.Current()
	assert.Equal(t, router.PathDashboard, cur.Path)
	assert.Equal(t, "image", cur.Query.Get("type"))
}

func TestApp_ExpiredSessionPromptsLogin(t *testing.T) {
	e := newEnv(t)
	e.persistLogin(t)
	a, out := e.newApp(t, lines("dashboard", "a@b.com", "secret1", "exit"))
	require.True(t, a.isLoggedIn())

	e.srv.RevokeAll()
	repl(a)

	s := out.String()
	assert.Contains(t, s, "* Your session has expired. Please log in again.")
	assert.NotContains(t, s, "dashboard failed")
	assert.Contains(t, s, "Logged in as user.")
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, router.PathDashboard, a.nav.CurrentPath())
}

func TestApp_LogoutInAnotherWindow(t *testing.T) {
	e := newEnv(t)
	e.persistLogin(t)
	ctx := context.Background()

	first, firstOut := e.newApp(t, "")
	second, secondOut := e.newApp(t, "")
	require.True(t, first.isLoggedIn())
	first.nav.Visit(ctx, router.Location{Path: router.PathDashboard})

	require.NoError(t, second.Logout(ctx))
	assert.Contains(t, secondOut.String(), "Logged out.")
	assert.NotContains(t, secondOut.String(), "another window")

	require.NoError(t, first.watcher.Poll(ctx))
	assert.False(t, first.isLoggedIn())
	assert.Contains(t, firstOut.String(), "* Logged out from another window.")

	assert.True(t, first.checkRedirect(ctx))
	assert.Equal(t, router.PathLogin, first.nav.CurrentPath())
	assert.Contains(t, firstOut.String(), "* Please log in to continue to /dashboard.")
}

func TestApp_LoginInAnotherWindow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, firstOut := e.newApp(t, "")
	second, _ := e.newApp(t, lines("a@b.com", "secret1"))

	require.NoError(t, second.Login(ctx))
	require.NoError(t, first.watcher.Poll(ctx))

	assert.True(t, first.isLoggedIn())
	assert.Contains(t, firstOut.String(), "* Logged in from another window (user).")
}

func TestApp_CachedResultsSurviveRestart(t *testing.T) {
	e := newEnv(t)
	e.persistLogin(t)
	a, _ := e.newApp(t, lines("image a red fox", "exit"))
	repl(a)
	require.NoError(t, a.Close())

	b, out := e.newApp(t, lines("last image", "exit"))
	repl(b)

	assert.Contains(t, out.String(), `Images for "a red fox":`)
	assert.Contains(t, out.String(), "https://img.test/a-red-fox.png")
}

func TestApp_BlankOrFailedSearchKeepsCachedResult(t *testing.T) {
	e := newEnv(t)
	e.persistLogin(t)

	a, _ := e.newApp(t, lines("search golang", "exit"))
	repl(a)

	e.srv.Force(http.MethodPost, "/search", http.StatusInternalServerError)
	b, out := e.newApp(t, lines("search", "search rust", "save", "last search", "exit"))
	repl(b)

	s := out.String()
	assert.Contains(t, s, "! Please enter something to search.")
	assert.NotContains(t, s, "Nothing to save yet.")
	assert.Contains(t, s, "Saved to dashboard (id 1).")
	assert.Contains(t, s, `Results for "golang" [saved]:`)

	d, err := b.dashboardService.Get(context.Background(), string(models.EntryTypeSearch), 1)
	require.NoError(t, err)
	assert.Equal(t, "golang", d.Query)
	require.Len(t, d.Results, 1)
	assert.Equal(t, "About golang", d.Results[0].Title)
}

func TestApp_DeleteAndCleanup(t *testing.T) {
	e := newEnv(t)
	e.persistLogin(t)
	keep := e.srv.SeedSearch("a@b.com", "golang", []models.SearchItem{{Title: "Go"}})
	e.srv.SeedSearch("a@b.com", "", []models.SearchItem{{Title: "x"}})
	e.srv.SeedImage("a@b.com", "", []models.Image{{URL: "https://img.test/y.png"}})

	a, out := e.newApp(t, lines(
		"delete search 999", "y",
		"cleanup", "y",
		"show search "+itoa(keep),
		"delete search "+itoa(keep), "n",
		"exit",
	))
	repl(a)

	s := out.String()
	assert.Contains(t, s, "! Not found")
	assert.Contains(t, s, "Removed 1 search and 1 image entries.")
	assert.Contains(t, s, `Results for "golang":`)
	assert.Equal(t, 1, e.srv.EntryCount("a@b.com", models.EntryTypeSearch))
	assert.Equal(t, 0, e.srv.EntryCount("a@b.com", models.EntryTypeImage))
}

func TestApp_GoAndBack(t *testing.T) {
	e := newEnv(t)
	a, out := e.newApp(t, lines("go /search", "go /nowhere", "back", "back", "exit"))
	repl(a)

	assert.Contains(t, out.String(), "! Page not found: /nowhere")
	assert.Equal(t, router.PathHome, a.nav.CurrentPath())
}

func TestApp_RunStopsOnExit(t *testing.T) {
	e := newEnv(t)
	a, _ := e.newApp(t, lines("exit"))

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after exit")
	}
	assert.Equal(t, ModeOnline, a.mode())
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	e := newEnv(t)
	// No input at all: the REPL would block forever on a real terminal.
	a, _ := e.newApp(t, "")
	a.reader.Reset(blockingReader{})

	prompted := make(chan struct{})
	var once sync.Once
	printlnFn = func(v ...any) (int, error) {
		if len(v) > 0 && strings.HasPrefix(v[0].(string), "ace ") {
			once.Do(func() { close(prompted) })
		}
		return 0, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	<-prompted
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_OnlineStatusWatcher(t *testing.T) {
	e := newEnv(t)
	a, _ := e.newApp(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.StartOnlineStatusWatcher(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return a.mode() == ModeOnline }, 2*time.Second, 10*time.Millisecond)

	e.srv.Close()
	assert.Eventually(t, func() bool { return a.mode() == ModeOffline }, 5*time.Second, 10*time.Millisecond)
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
