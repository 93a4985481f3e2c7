// Package stores provides the persistence layer for session recordings.
// It includes SQLite-based storage with WAL mode, connection pooling,
// and CRUD operations for sessions, frames, collision events, and build
// logs, plus a controller.Recorder implementation on top of the store.
package stores
