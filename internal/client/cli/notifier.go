package cli

import (
	"fmt"
	"io"
	"sync"
)

// Notifier prints banners. It is shared by the REPL and the background
// watchers, so writes are serialised.
type Notifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{w: w}
}

// Info reports a successful outcome.
func (n *Notifier) Info(format string, args ...any) {
	n.print("", format, args...)
}

// Notice reports something that happened without the user asking, such as
// a redirect or a change made in another process.
func (n *Notifier) Notice(format string, args ...any) {
	n.print("* ", format, args...)
}

func (n *Notifier) Error(format string, args ...any) {
	n.print("! ", format, args...)
}

func (n *Notifier) print(prefix, format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, prefix+format+"\n", args...)
}
