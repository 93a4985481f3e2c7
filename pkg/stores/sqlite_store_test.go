package stores

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setupTestStore creates a migrated SQLite store backed by a temp file
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "sessions.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Status:    SessionStatusActive,
		StartedAt: now,
		Metadata:  "{}",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "sessions.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreRequiresPath tests that an empty path is rejected
func TestStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("expected an error for an empty database path")
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)

	ctx := context.Background()

	// Check that tables exist by querying them
	tables := []string{"sessions", "frames", "collision_events", "build_logs"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

// TestSessionCRUD tests session CRUD operations
func TestSessionCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateSession(ctx, testSession("sess-1")); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.Status != SessionStatusActive {
		t.Errorf("status = %q, want %q", got.Status, SessionStatusActive)
	}
	if got.CompletedAt != nil {
		t.Error("new session should not have a completion time")
	}

	if err := store.SetSessionBuildVersion(ctx, "sess-1", "1.12.27"); err != nil {
		t.Fatalf("failed to set build version: %v", err)
	}
	got, err = store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.BuildVersion != "1.12.27" {
		t.Errorf("build version = %q", got.BuildVersion)
	}

	errMsg := "connection reset"
	if err := store.CompleteSession(ctx, "sess-1", SessionStatusFailed, &errMsg); err != nil {
		t.Fatalf("failed to complete session: %v", err)
	}
	got, err = store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.Status != SessionStatusFailed {
		t.Errorf("status = %q, want %q", got.Status, SessionStatusFailed)
	}
	if got.CompletedAt == nil {
		t.Error("completed session should have a completion time")
	}
	if got.Error == nil || *got.Error != errMsg {
		t.Errorf("error = %v, want %q", got.Error, errMsg)
	}

	sessions, err := store.ListSessions(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}

	if err := store.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}
	if _, err := store.GetSession(ctx, "sess-1"); err == nil {
		t.Error("expected an error for a deleted session")
	}
}

// TestSessionNotFound tests error handling for unknown session IDs
func TestSessionNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.GetSession(ctx, "missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("get: err = %v", err)
	}
	if err := store.CompleteSession(ctx, "missing", SessionStatusCompleted, nil); err == nil {
		t.Error("complete: expected an error")
	}
	if err := store.DeleteSession(ctx, "missing"); err == nil {
		t.Error("delete: expected an error")
	}
}

// TestFrameOperations tests frame insertion, listing, and counting
func TestFrameOperations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateSession(ctx, testSession("sess-1")); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	for i := uint64(1); i <= 3; i++ {
		frame := &FrameRecord{
			SessionID:    "sess-1",
			Number:       i,
			CommandCount: int(i),
			PayloadCount: 2,
			PayloadTypes: `["tran","rigi"]`,
			LatencyUS:    1500,
			RecordedAt:   time.Now(),
		}
		if err := store.InsertFrame(ctx, frame); err != nil {
			t.Fatalf("failed to insert frame %d: %v", i, err)
		}
		if frame.ID == 0 {
			t.Errorf("frame %d has no generated ID", i)
		}
	}

	// The same frame number cannot be recorded twice per session.
	dup := &FrameRecord{SessionID: "sess-1", Number: 2, PayloadTypes: "[]", RecordedAt: time.Now()}
	if err := store.InsertFrame(ctx, dup); err == nil {
		t.Error("expected an error for a duplicate frame number")
	}

	frames, err := store.ListFramesBySession(ctx, "sess-1", 10, 0)
	if err != nil {
		t.Fatalf("failed to list frames: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	for i, frame := range frames {
		if frame.Number != uint64(i+1) {
			t.Errorf("frame %d: number = %d", i, frame.Number)
		}
	}

	count, err := store.CountFrames(ctx, "sess-1")
	if err != nil {
		t.Fatalf("failed to count frames: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

// TestCollisionEventBatch tests batch insertion of collision events
func TestCollisionEventBatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateSession(ctx, testSession("sess-1")); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	collidee := int32(2)
	events := []*CollisionEvent{
		{
			SessionID:     "sess-1",
			FrameNumber:   5,
			ColliderID:    1,
			CollideeID:    &collidee,
			State:         "enter",
			RelativeSpeed: 1.5,
			ContactCount:  2,
			RecordedAt:    time.Now(),
		},
		{
			SessionID:    "sess-1",
			FrameNumber:  5,
			ColliderID:   1,
			State:        "stay",
			Floor:        true,
			ContactCount: 4,
			RecordedAt:   time.Now(),
		},
	}
	if err := store.InsertCollisionEvents(ctx, events); err != nil {
		t.Fatalf("failed to insert collision events: %v", err)
	}

	// Empty batches are a no-op.
	if err := store.InsertCollisionEvents(ctx, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	got, err := store.ListCollisionEvents(ctx, "sess-1", 10, 0)
	if err != nil {
		t.Fatalf("failed to list collision events: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].CollideeID == nil || *got[0].CollideeID != 2 {
		t.Errorf("object collision collidee = %v", got[0].CollideeID)
	}
	if got[1].CollideeID != nil {
		t.Error("environment collision should have a nil collidee")
	}
	if !got[1].Floor {
		t.Error("environment collision should be against the floor")
	}
}

// TestBuildLogFilter tests build log listing with a level filter
func TestBuildLogFilter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateSession(ctx, testSession("sess-1")); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	entries := []*BuildLog{
		{SessionID: "sess-1", FrameNumber: 1, Level: "info", Message: "scene loaded", RecordedAt: time.Now()},
		{SessionID: "sess-1", FrameNumber: 2, Level: "warning", Message: "unknown command", ObjectType: "frobnicate", RecordedAt: time.Now()},
		{SessionID: "sess-1", FrameNumber: 3, Level: "error", Message: "missing asset", RecordedAt: time.Now()},
	}
	for _, entry := range entries {
		if err := store.AppendBuildLog(ctx, entry); err != nil {
			t.Fatalf("failed to append build log: %v", err)
		}
	}

	all, err := store.ListBuildLogs(ctx, "sess-1", nil, 10, 0)
	if err != nil {
		t.Fatalf("failed to list build logs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d logs, want 3", len(all))
	}

	warning := "warning"
	warnings, err := store.ListBuildLogs(ctx, "sess-1", &warning, 10, 0)
	if err != nil {
		t.Fatalf("failed to list build logs: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if warnings[0].ObjectType != "frobnicate" {
		t.Errorf("object type = %q", warnings[0].ObjectType)
	}
}

// TestDeleteSessionCascades tests that deleting a session removes its rows
func TestDeleteSessionCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateSession(ctx, testSession("sess-1")); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	frame := &FrameRecord{SessionID: "sess-1", Number: 1, PayloadTypes: "[]", RecordedAt: time.Now()}
	if err := store.InsertFrame(ctx, frame); err != nil {
		t.Fatalf("failed to insert frame: %v", err)
	}

	if err := store.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}

	count, err := store.CountFrames(ctx, "sess-1")
	if err != nil {
		t.Fatalf("failed to count frames: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after delete, want 0", count)
	}
}
