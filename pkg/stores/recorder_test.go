package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/simbridge/simbridge/pkg/controller"
	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/protocol"
	"github.com/simbridge/simbridge/pkg/telemetry"
)

func testRecorder(t *testing.T) (*FrameRecorder, *SQLiteStore) {
	t.Helper()
	store := setupTestStore(t)
	log, err := telemetry.NewLogger(telemetry.LoggingConfig{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return NewFrameRecorder(store, log), store
}

func frameResult(number uint64, payloads ...outputdata.Payload) *controller.Result {
	return &controller.Result{
		Frame:    &protocol.Frame{Number: number},
		Payloads: payloads,
	}
}

// TestRecorderCreatesSessionLazily tests that the first recorded frame
// creates the session row
func TestRecorderCreatesSessionLazily(t *testing.T) {
	recorder, store := testRecorder(t)
	ctx := context.Background()

	result := frameResult(1, &outputdata.Version{EngineVersion: "2022.3", BuildVersion: "1.12.27"})
	if err := recorder.RecordFrame("sess-1", result, 1, 2*time.Millisecond); err != nil {
		t.Fatalf("failed to record frame: %v", err)
	}

	session, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if session.Status != SessionStatusActive {
		t.Errorf("status = %q", session.Status)
	}
	if session.BuildVersion != "1.12.27" {
		t.Errorf("build version = %q", session.BuildVersion)
	}

	frames, err := store.ListFramesBySession(ctx, "sess-1", 10, 0)
	if err != nil {
		t.Fatalf("failed to list frames: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].Number != 1 || frames[0].CommandCount != 1 || frames[0].PayloadCount != 1 {
		t.Errorf("frame record = %+v", frames[0])
	}
	if frames[0].PayloadTypes != `["vers"]` {
		t.Errorf("payload types = %q", frames[0].PayloadTypes)
	}
	if frames[0].LatencyUS != 2000 {
		t.Errorf("latency = %dus", frames[0].LatencyUS)
	}
}

// TestRecorderExtractsCollisionsAndLogs tests payload extraction into the
// collision and build log tables
func TestRecorderExtractsCollisionsAndLogs(t *testing.T) {
	recorder, store := testRecorder(t)
	ctx := context.Background()

	result := frameResult(7,
		&outputdata.Collision{
			ColliderID:       1,
			CollideeID:       2,
			State:            outputdata.CollisionEnter,
			RelativeVelocity: protocol.Vector3{X: 3, Y: 0, Z: 4},
			Contacts:         []outputdata.Contact{{}},
		},
		&outputdata.EnvironmentCollision{
			ObjectID: 1,
			State:    outputdata.CollisionStay,
			Floor:    true,
		},
		&outputdata.LogMessage{
			Level:      outputdata.LogWarning,
			Message:    "unknown command",
			ObjectType: "frobnicate",
		},
	)
	if err := recorder.RecordFrame("sess-1", result, 0, time.Millisecond); err != nil {
		t.Fatalf("failed to record frame: %v", err)
	}

	events, err := store.ListCollisionEvents(ctx, "sess-1", 10, 0)
	if err != nil {
		t.Fatalf("failed to list collision events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d collision events, want 2", len(events))
	}
	obj := events[0]
	if obj.CollideeID == nil || *obj.CollideeID != 2 || obj.State != "enter" {
		t.Errorf("object event = %+v", obj)
	}
	if obj.RelativeSpeed != 5 {
		t.Errorf("relative speed = %v, want 5", obj.RelativeSpeed)
	}
	if obj.ContactCount != 1 {
		t.Errorf("contact count = %d", obj.ContactCount)
	}
	env := events[1]
	if env.CollideeID != nil || !env.Floor || env.State != "stay" {
		t.Errorf("environment event = %+v", env)
	}

	logs, err := store.ListBuildLogs(ctx, "sess-1", nil, 10, 0)
	if err != nil {
		t.Fatalf("failed to list build logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d build logs, want 1", len(logs))
	}
	if logs[0].Level != "warning" || logs[0].Message != "unknown command" {
		t.Errorf("build log = %+v", logs[0])
	}
}

// TestRecorderFinish tests terminal session status
func TestRecorderFinish(t *testing.T) {
	recorder, store := testRecorder(t)
	ctx := context.Background()

	if err := recorder.RecordFrame("sess-1", frameResult(1), 0, time.Millisecond); err != nil {
		t.Fatalf("failed to record frame: %v", err)
	}
	if err := recorder.Finish(ctx, "sess-1", nil); err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}

	session, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if session.Status != SessionStatusCompleted {
		t.Errorf("status = %q", session.Status)
	}

	// Finishing an unknown session is a no-op.
	if err := recorder.Finish(ctx, "never-recorded", errors.New("boom")); err != nil {
		t.Fatalf("finish unknown session: %v", err)
	}
}

// TestRecorderFailedSession tests that a session error is persisted
func TestRecorderFailedSession(t *testing.T) {
	recorder, store := testRecorder(t)
	ctx := context.Background()

	if err := recorder.RecordFrame("sess-1", frameResult(1), 0, time.Millisecond); err != nil {
		t.Fatalf("failed to record frame: %v", err)
	}
	if err := recorder.Finish(ctx, "sess-1", errors.New("build crashed")); err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}

	session, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if session.Status != SessionStatusFailed {
		t.Errorf("status = %q", session.Status)
	}
	if session.Error == nil || *session.Error != "build crashed" {
		t.Errorf("error = %v", session.Error)
	}
}
