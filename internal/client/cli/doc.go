// Package cli provides the interactive ace command-line client.
//
// It wires configuration, the shared SQLite store, the API client, the
// session manager, the router and the page services into a REPL. Each
// running process behaves like one browser tab: logins and logouts made in
// another process reach this one through the storage watcher.
//
// Key features:
//   - Login / Register / Logout / WhoAmI
//   - Search and image generation with results kept across restarts
//   - Dashboard listing, details, deletion and cleanup
//   - Route guarding with a redirect to login and back
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or ctx is cancelled. See App, StartOnlineStatusWatcher, and runREPL for
// details.
package cli
