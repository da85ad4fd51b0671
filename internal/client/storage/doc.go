// Package storage is the client's persistent key/value store.
//
// All client processes that point at the same SQLite file share one kv table,
// the way browser tabs share localStorage. Every mutation is also appended to
// kv_changes together with the writer's origin id, so a Watcher running in
// another process can notice the change and tell its subscribers.
//
// Values are plain strings. Callers that persist structured data encode it
// themselves (the result cache uses JSON).
package storage
