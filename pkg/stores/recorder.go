package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/simbridge/simbridge/pkg/controller"
	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/telemetry"
)

const defaultRecordTimeout = 5 * time.Second

// FrameRecorder persists controller round trips to a Store. It implements
// controller.Recorder, creating the session row lazily on the first frame
// and extracting collision events and build log messages from the payloads.
type FrameRecorder struct {
	store   Store
	log     *telemetry.Logger
	timeout time.Duration

	mu       sync.Mutex
	sessions map[string]bool
}

// NewFrameRecorder creates a recorder on top of an initialized store.
func NewFrameRecorder(store Store, log *telemetry.Logger) *FrameRecorder {
	return &FrameRecorder{
		store:    store,
		log:      log.NewComponentLogger("recorder"),
		timeout:  defaultRecordTimeout,
		sessions: make(map[string]bool),
	}
}

// RecordFrame implements controller.Recorder.
func (r *FrameRecorder) RecordFrame(sessionID string, result *controller.Result, commandCount int, latency time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.ensureSession(ctx, sessionID); err != nil {
		return err
	}

	now := time.Now()
	frame := &FrameRecord{
		SessionID:    sessionID,
		Number:       result.Frame.Number,
		CommandCount: commandCount,
		PayloadCount: len(result.Payloads),
		PayloadTypes: payloadTypesJSON(result.Payloads),
		LatencyUS:    latency.Microseconds(),
		RecordedAt:   now,
	}
	if err := r.store.InsertFrame(ctx, frame); err != nil {
		return fmt.Errorf("failed to record frame %d: %w", result.Frame.Number, err)
	}

	var events []*CollisionEvent
	for _, payload := range result.Payloads {
		switch p := payload.(type) {
		case *outputdata.Collision:
			collidee := p.CollideeID
			events = append(events, &CollisionEvent{
				SessionID:     sessionID,
				FrameNumber:   result.Frame.Number,
				ColliderID:    p.ColliderID,
				CollideeID:    &collidee,
				State:         p.State.String(),
				RelativeSpeed: speed(p.RelativeVelocity.X, p.RelativeVelocity.Y, p.RelativeVelocity.Z),
				ContactCount:  len(p.Contacts),
				RecordedAt:    now,
			})
		case *outputdata.EnvironmentCollision:
			events = append(events, &CollisionEvent{
				SessionID:    sessionID,
				FrameNumber:  result.Frame.Number,
				ColliderID:   p.ObjectID,
				State:        p.State.String(),
				Floor:        p.Floor,
				ContactCount: len(p.Contacts),
				RecordedAt:   now,
			})
		case *outputdata.LogMessage:
			entry := &BuildLog{
				SessionID:   sessionID,
				FrameNumber: result.Frame.Number,
				Level:       p.Level.String(),
				Message:     p.Message,
				ObjectType:  p.ObjectType,
				RecordedAt:  now,
			}
			if err := r.store.AppendBuildLog(ctx, entry); err != nil {
				return fmt.Errorf("failed to record build log: %w", err)
			}
		case *outputdata.Version:
			if err := r.store.SetSessionBuildVersion(ctx, sessionID, p.BuildVersion); err != nil {
				return fmt.Errorf("failed to record build version: %w", err)
			}
		}
	}
	if err := r.store.InsertCollisionEvents(ctx, events); err != nil {
		return fmt.Errorf("failed to record collision events: %w", err)
	}

	return nil
}

// Finish marks the session's terminal status. Call it after the controller
// session ends.
func (r *FrameRecorder) Finish(ctx context.Context, sessionID string, sessionErr error) error {
	r.mu.Lock()
	known := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if !known {
		return nil
	}

	status := SessionStatusCompleted
	var errMsg *string
	if sessionErr != nil {
		status = SessionStatusFailed
		msg := sessionErr.Error()
		errMsg = &msg
	}
	if err := r.store.CompleteSession(ctx, sessionID, status, errMsg); err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}

	r.log.WithSessionID(sessionID).WithField("status", string(status)).Debug("session recording finished")
	return nil
}

func (r *FrameRecorder) ensureSession(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[sessionID] {
		return nil
	}

	now := time.Now()
	session := &Session{
		ID:        sessionID,
		Status:    SessionStatusActive,
		StartedAt: now,
		Metadata:  "{}",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to create session record: %w", err)
	}

	r.sessions[sessionID] = true
	r.log.WithSessionID(sessionID).Debug("session recording started")
	return nil
}

func payloadTypesJSON(payloads []outputdata.Payload) string {
	ids := make([]string, 0, len(payloads))
	for _, p := range payloads {
		ids = append(ids, p.TypeID())
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func speed(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}
