package session

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ace/internal/client/api"
	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/client/router"
	"github.com/dmitrijs2005/ace/internal/client/storage"
	"github.com/dmitrijs2005/ace/internal/client/tokenstore"
	"github.com/dmitrijs2005/ace/internal/common"
	"github.com/dmitrijs2005/ace/internal/logging"
	"github.com/dmitrijs2005/ace/internal/testutil/fakeapi"
)

// tab is one simulated client process sharing the storage file.
type tab struct {
	repo    *storage.SQLiteRepository
	watcher *storage.Watcher
	tokens  *tokenstore.Store
	nav     *router.Navigator
	client  *api.Client
	session *Manager
}

func openTab(t *testing.T, dbPath string, srv *fakeapi.Server) *tab {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tb := &tab{repo: storage.NewSQLiteRepository(db)}
	tb.watcher = storage.NewWatcher(tb.repo, time.Hour, logging.Discard())
	require.NoError(t, tb.watcher.Prime(ctx))
	tb.tokens = tokenstore.New(tb.repo, tb.watcher, logging.Discard())
	tb.nav = router.NewNavigator(router.NewTable(), router.MustLocation("/login"), logging.Discard())
	tb.client, err = api.New(srv.URL, tb.tokens, tb.nav,
		api.OnUnauthorized(func(ctx context.Context) { tb.session.Expire(ctx) }))
	require.NoError(t, err)
	tb.session = NewManager(ctx, tb.tokens, tb.client, logging.Discard())
	t.Cleanup(tb.session.Close)
	return tb
}

func setup(t *testing.T) (string, *fakeapi.Server) {
	t.Helper()
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	srv.AddUser("a@b.com", "secret1", "user")
	return filepath.Join(t.TempDir(), "ace.db"), srv
}

func assertConsistent(t *testing.T, tb *tab) {
	t.Helper()
	ctx := context.Background()
	st := tb.session.State()
	token, hasToken := tb.tokens.Get(ctx)
	role, _ := tb.tokens.Role(ctx)

	assert.Equal(t, st.Token != "", st.IsAuthenticated())
	assert.Equal(t, hasToken, st.IsAuthenticated())
	assert.Equal(t, token, st.Token)
	assert.Equal(t, role, string(st.Role))
}

func TestLogin_SuccessUpdatesMemoryAndStore(t *testing.T) {
	dbPath, srv := setup(t)
	tb := openTab(t, dbPath, srv)
	ctx := context.Background()

	var seen []State
	tb.session.Subscribe(func(s State) { seen = append(seen, s) })

	require.NoError(t, tb.session.Login(ctx, "a@b.com", "secret1"))

	assert.True(t, tb.session.IsAuthenticated())
	assert.Equal(t, RoleUser, tb.session.Role())
	assertConsistent(t, tb)
	require.Len(t, seen, 1)
	assert.True(t, seen[0].IsAuthenticated())

	_, err := tb.client.ListDashboard(ctx, models.DashboardFilter{Type: models.EntryTypeAll, Page: 1})
	require.NoError(t, err)
	req, ok := srv.LastRequest(http.MethodGet, "/dashboard")
	require.True(t, ok)
	assert.Equal(t, "Bearer "+tb.session.State().Token, req.Authorization)
	assert.Equal(t, "page=1&type=all", req.Query)
}

func TestLogin_FailureLeavesSessionUntouched(t *testing.T) {
	dbPath, srv := setup(t)
	tb := openTab(t, dbPath, srv)
	ctx := context.Background()

	err := tb.session.Login(ctx, "a@b.com", "wrong")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid email or password", authErr.Message)
	assert.False(t, tb.session.IsAuthenticated())
	assertConsistent(t, tb)
}

func TestLogin_FallbackMessage(t *testing.T) {
	dbPath, srv := setup(t)
	tb := openTab(t, dbPath, srv)
	srv.Force(http.MethodPost, "/auth/login", http.StatusInternalServerError)

	err := tb.session.Login(context.Background(), "a@b.com", "secret1")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Internal Server Error", authErr.Message)

	srv.Close()
	err = tb.session.Login(context.Background(), "a@b.com", "secret1")
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials.", authErr.Message)
	assert.ErrorIs(t, err, api.ErrNetwork)
}

func TestLogin_RequiresFields(t *testing.T) {
	dbPath, srv := setup(t)
	tb := openTab(t, dbPath, srv)

	err := tb.session.Login(context.Background(), "  ", "x")
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, srv.Requests())
}

func TestLogoutIsIdempotent(t *testing.T) {
	dbPath, srv := setup(t)
	tb := openTab(t, dbPath, srv)
	ctx := context.Background()
	require.NoError(t, tb.session.Login(ctx, "a@b.com", "secret1"))

	calls := 0
	tb.session.Subscribe(func(State) { calls++ })
	before := len(srv.Requests())

	tb.session.Logout(ctx)
	tb.session.Logout(ctx)

	assert.False(t, tb.session.IsAuthenticated())
	_, ok := tb.tokens.Get(ctx)
	assert.False(t, ok)
	_, ok = tb.tokens.Role(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
	assert.Len(t, srv.Requests(), before, "logout must not touch the network")
	assertConsistent(t, tb)
}

func TestLoginLogoutSequencesStayConsistent(t *testing.T) {
	dbPath, srv := setup(t)
	tb := openTab(t, dbPath, srv)
	ctx := context.Background()

	for _, step := range []string{"in", "out", "out", "in", "in", "bad", "out", "bad"} {
		switch step {
		case "in":
			require.NoError(t, tb.session.Login(ctx, "a@b.com", "secret1"))
		case "bad":
			require.Error(t, tb.session.Login(ctx, "nobody@b.com", "secret1"))
		case "out":
			tb.session.Logout(ctx)
		}
		assertConsistent(t, tb)
	}
}

func TestFailedLoginKeepsExistingSession(t *testing.T) {
	dbPath, srv := setup(t)
	tb := openTab(t, dbPath, srv)
	ctx := context.Background()
	require.NoError(t, tb.session.Login(ctx, "a@b.com", "secret1"))
	before := tb.session.State()

	require.Error(t, tb.session.Login(ctx, "a@b.com", "wrong"))

	assert.Equal(t, before, tb.session.State())
	assertConsistent(t, tb)
	assert.False(t, tb.nav.TakeForced())
}

func TestHydratesFromPersistedToken(t *testing.T) {
	dbPath, srv := setup(t)
	first := openTab(t, dbPath, srv)
	require.NoError(t, first.session.Login(context.Background(), "a@b.com", "secret1"))

	second := openTab(t, dbPath, srv)
	assert.True(t, second.session.Ready())
	assert.True(t, second.session.IsAuthenticated())
	assert.Equal(t, RoleUser, second.session.Role())
}

func TestCrossProcessLogoutAndLogin(t *testing.T) {
	dbPath, srv := setup(t)
	ctx := context.Background()
	tabA := openTab(t, dbPath, srv)
	require.NoError(t, tabA.session.Login(ctx, "a@b.com", "secret1"))
	tabB := openTab(t, dbPath, srv)
	require.True(t, tabB.session.IsAuthenticated())

	guard := router.NewGuard(router.NewTable(), tabB.session, tabB.tokens, logging.Discard())
	tabB.nav.SetGuard(guard)
	require.True(t, tabB.nav.Visit(ctx, router.MustLocation("/dashboard")).Allowed)

	var seen []State
	tabB.session.Subscribe(func(s State) { seen = append(seen, s) })

	tabA.session.Logout(ctx)
	require.NoError(t, tabB.watcher.Poll(ctx))

	assert.False(t, tabB.session.IsAuthenticated())
	assert.Empty(t, tabB.session.Role())
	require.NotEmpty(t, seen)
	assert.False(t, seen[len(seen)-1].IsAuthenticated())

	d := tabB.nav.Recheck(ctx)
	assert.False(t, d.Allowed)
	assert.Equal(t, router.PathLogin, tabB.nav.CurrentPath())

	srv.AddUser("admin@b.com", "secret1", "admin")
	require.NoError(t, tabA.session.Login(ctx, "admin@b.com", "secret1"))
	require.NoError(t, tabB.watcher.Poll(ctx))
	assert.True(t, tabB.session.IsAuthenticated())
	assert.Equal(t, RoleAdmin, tabB.session.Role())
	assert.Equal(t, tabA.session.State(), tabB.session.State())
}

func Test401ClearsSessionStoreAndRedirects(t *testing.T) {
	dbPath, srv := setup(t)
	tb := openTab(t, dbPath, srv)
	ctx := context.Background()
	require.NoError(t, tb.session.Login(ctx, "a@b.com", "secret1"))
	id := srv.SeedImage("a@b.com", "fox", []models.Image{{URL: "https://img.test/fox.png"}})
	tb.nav.Redirect(router.MustLocation("/dashboard"))

	srv.RevokeAll()
	err := tb.client.DeleteEntry(ctx, models.EntryTypeImage, id)
	require.ErrorIs(t, err, api.ErrSessionExpired)

	_, ok := tb.tokens.Get(ctx)
	assert.False(t, ok)
	assert.False(t, tb.session.IsAuthenticated())
	assertConsistent(t, tb)
	assert.Equal(t, router.PathLogin, tb.nav.CurrentPath())
	assert.True(t, tb.nav.TakeForced())
	assert.Equal(t, 1, srv.EntryCount("a@b.com", models.EntryTypeImage))
}

func TestRegisterThenAutoLogin(t *testing.T) {
	dbPath, srv := setup(t)
	tb := openTab(t, dbPath, srv)
	ctx := context.Background()

	require.NoError(t, tb.session.Register(ctx, "new@b.com", "secret1"))
	assert.True(t, tb.session.IsAuthenticated())
	assertConsistent(t, tb)

	tb.session.Logout(ctx)
	err := tb.session.Register(ctx, "new@b.com", "secret1")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Email already registered", authErr.Message)
	assert.False(t, tb.session.IsAuthenticated())
}

type stubAuth struct {
	loginErr    error
	registerErr error
	resp        models.TokenResponse
}

func (s stubAuth) Login(context.Context, string, string) (models.TokenResponse, error) {
	return s.resp, s.loginErr
}

func (s stubAuth) Register(context.Context, string, string) error {
	return s.registerErr
}

func TestRegister_FallbackMessage(t *testing.T) {
	dbPath, srv := setup(t)
	tb := openTab(t, dbPath, srv)

	m := NewManager(context.Background(), tb.tokens, stubAuth{registerErr: errors.New("boom")}, logging.Discard())
	defer m.Close()

	err := m.Register(context.Background(), "x@b.com", "secret1")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Registration failed.", authErr.Message)
}

func TestLogin_EmptyTokenIsRejected(t *testing.T) {
	dbPath, srv := setup(t)
	tb := openTab(t, dbPath, srv)

	m := NewManager(context.Background(), tb.tokens, stubAuth{resp: models.TokenResponse{Role: "user"}}, logging.Discard())
	defer m.Close()

	err := m.Login(context.Background(), "x@b.com", "secret1")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.False(t, m.IsAuthenticated())
}

func TestClaims(t *testing.T) {
	dbPath, srv := setup(t)
	tb := openTab(t, dbPath, srv)

	_, err := tb.session.Claims()
	require.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, tb.session.Login(context.Background(), "a@b.com", "secret1"))
	c, err := tb.session.Claims()
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", c.Subject)
	assert.Equal(t, "user", c.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), c.ExpiresAt, time.Minute)
}

func TestNilManagerIsNotReady(t *testing.T) {
	var m *Manager
	assert.False(t, m.Ready())
	assert.False(t, m.IsAuthenticated())
}
