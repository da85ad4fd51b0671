package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn  bool
	redirects int

	calls []string
	args  map[string][]string
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	if f.args == nil {
		f.args = map[string][]string{}
	}
	f.args[name] = args
	return nil
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) checkRedirect(context.Context) bool {
	if f.redirects > 0 {
		f.redirects--
		return true
	}
	return false
}
func (f *fakeExec) Register(context.Context) error { return f.record("register", nil) }
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login", nil)
}
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}
func (f *fakeExec) WhoAmI(context.Context) error { return f.record("whoami", nil) }
func (f *fakeExec) Search(_ context.Context, args []string) error {
	return f.record("search", args)
}
func (f *fakeExec) Image(_ context.Context, args []string) error { return f.record("image", args) }
func (f *fakeExec) Save(_ context.Context, args []string) error  { return f.record("save", args) }
func (f *fakeExec) Clear(_ context.Context, args []string) error { return f.record("clear", args) }
func (f *fakeExec) Last(_ context.Context, args []string) error  { return f.record("last", args) }
func (f *fakeExec) Dashboard(_ context.Context, args []string) error {
	return f.record("dashboard", args)
}
func (f *fakeExec) Show(_ context.Context, args []string) error   { return f.record("show", args) }
func (f *fakeExec) Delete(_ context.Context, args []string) error { return f.record("delete", args) }
func (f *fakeExec) Cleanup(context.Context) error                 { return f.record("cleanup", nil) }
func (f *fakeExec) Go(_ context.Context, args []string) error     { return f.record("go", args) }
func (f *fakeExec) Back(context.Context) error                    { return f.record("back", nil) }

func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func input(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	out := capturePrintln(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, input(
		"help",
		"login",
		"help",
		"search golang generics",
		"image a red fox",
		"save image",
		"clear",
		"last search",
		"d search 2 fox",
		"show search 12",
		"delete image 3",
		"cleanup",
		"whoami",
		"go /dashboard",
		"back",
		"",
		"foobar",
		"logout",
		"register",
		"exit",
		"search never",
	))

	assert.Equal(t, []string{
		"login", "search", "image", "save", "clear", "last", "dashboard", "show",
		"delete", "cleanup", "whoami", "go", "back", "logout", "register",
	}, exec.calls)
	assert.Equal(t, []string{"golang", "generics"}, exec.args["search"])
	assert.Equal(t, []string{"search", "2", "fox"}, exec.args["dashboard"])
	assert.Equal(t, []string{"image", "3"}, exec.args["delete"])

	joined := strings.Join(*out, "\n")
	assert.Contains(t, joined, "ace status> ")
	assert.Contains(t, joined, "Available commands: register, login")
	assert.Contains(t, joined, "Available commands: search, image, save")
	assert.Contains(t, joined, "Unknown command: foobar")
	assert.Equal(t, "Bye!", (*out)[len(*out)-1])
}

func TestRunREPL_RedirectStartsLogin(t *testing.T) {
	capturePrintln(t)

	exec := &fakeExec{redirects: 1}
	runREPL(context.Background(), exec, func() string { return "" }, input("whoami", "exit"))

	require.NotEmpty(t, exec.calls)
	assert.Equal(t, []string{"login", "whoami"}, exec.calls)
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	capturePrintln(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, input("whoami"))
	assert.Equal(t, []string{"whoami"}, exec.calls)
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	capturePrintln(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "" }, input("whoami", "exit"))
	assert.Empty(t, exec.calls)
}
