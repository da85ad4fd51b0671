package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	// checkRedirect reports whether the client was sent to the login view
	// since the last prompt, printing the reason.
	checkRedirect(ctx context.Context) bool

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error

	Search(ctx context.Context, args []string) error
	Image(ctx context.Context, args []string) error
	Save(ctx context.Context, args []string) error
	Clear(ctx context.Context, args []string) error
	Last(ctx context.Context, args []string) error

	Dashboard(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Cleanup(ctx context.Context) error

	Go(ctx context.Context, args []string) error
	Back(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the ace CLI.
//
// Lines are read from in, which command handlers also use for their own
// prompts. The first token is the command, the rest are its arguments.
// Before every prompt the REPL asks a whether the client was redirected to
// the login view (expired session, logout in another window) and, if so,
// starts the login flow right away.
//
// Any errors returned by command handlers are ignored here; handlers
// report their own errors. The loop exits on EOF, when ctx is done, or when
// the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		if a.checkRedirect(ctx) {
			_ = a.Login(ctx)
		}

		printlnFn(fmt.Sprintf("ace %s> ", statusFn()))
		line, err := readLine(in)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: search, image, save, clear, last, (d)ashboard, show, delete, cleanup, whoami, go, back, logout, exit")
			} else {
				printlnFn("Available commands: register, login, search, image, last, clear, go, back, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "search":
			_ = a.Search(ctx, args)

		case "image":
			_ = a.Image(ctx, args)

		case "save":
			_ = a.Save(ctx, args)

		case "clear":
			_ = a.Clear(ctx, args)

		case "last":
			_ = a.Last(ctx, args)

		case "d", "dashboard":
			_ = a.Dashboard(ctx, args)

		case "show":
			_ = a.Show(ctx, args)

		case "delete":
			_ = a.Delete(ctx, args)

		case "cleanup":
			_ = a.Cleanup(ctx)

		case "go":
			_ = a.Go(ctx, args)

		case "back":
			_ = a.Back(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
