package stores_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/simbridge/simbridge/pkg/stores"
)

// Example demonstrates the session recording workflow: open a store, run the
// migrations, create a session, and count its recorded frames.
func Example() {
	dir, err := os.MkdirTemp("", "stores-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	store, err := stores.NewSQLiteStore(stores.Config{
		Path: filepath.Join(dir, "sessions.db"),
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	now := time.Now()
	session := &stores.Session{
		ID:        "d3f9a2b0",
		Status:    stores.SessionStatusActive,
		StartedAt: now,
		Metadata:  "{}",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateSession(ctx, session); err != nil {
		log.Fatal(err)
	}

	frame := &stores.FrameRecord{
		SessionID:    session.ID,
		Number:       1,
		CommandCount: 3,
		PayloadCount: 1,
		PayloadTypes: `["tran"]`,
		LatencyUS:    1800,
		RecordedAt:   now,
	}
	if err := store.InsertFrame(ctx, frame); err != nil {
		log.Fatal(err)
	}

	count, err := store.CountFrames(ctx, session.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("recorded %d frame(s)\n", count)

	// Output: recorded 1 frame(s)
}
