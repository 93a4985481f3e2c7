package stores

import (
	"context"
	"database/sql"
	"time"
)

// SessionStatus represents the status of a recorded controller session
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

// Session represents one controller connection to a build
type Session struct {
	ID           string        `json:"id"`
	BuildVersion string        `json:"build_version"`
	Status       SessionStatus `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Error        *string       `json:"error,omitempty"`
	Metadata     string        `json:"metadata"` // JSON blob
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// FrameRecord represents one command/response round trip within a session
type FrameRecord struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	Number       uint64    `json:"number"`
	CommandCount int       `json:"command_count"`
	PayloadCount int       `json:"payload_count"`
	PayloadTypes string    `json:"payload_types"` // JSON array of payload type ids
	LatencyUS    int64     `json:"latency_us"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// CollisionEvent represents a collision reported by the build. CollideeID is
// nil for collisions with the scene environment.
type CollisionEvent struct {
	ID            int64     `json:"id"`
	SessionID     string    `json:"session_id"`
	FrameNumber   uint64    `json:"frame_number"`
	ColliderID    int32     `json:"collider_id"`
	CollideeID    *int32    `json:"collidee_id,omitempty"`
	State         string    `json:"state"` // enter, stay, exit
	Floor         bool      `json:"floor"`
	RelativeSpeed float64   `json:"relative_speed"`
	ContactCount  int       `json:"contact_count"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// BuildLog represents a log message forwarded by the build
type BuildLog struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	FrameNumber uint64    `json:"frame_number"`
	Level       string    `json:"level"` // info, warning, error
	Message     string    `json:"message"`
	ObjectType  string    `json:"object_type"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Store defines the interface for the session recording persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Session operations
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	SetSessionBuildVersion(ctx context.Context, id, version string) error
	CompleteSession(ctx context.Context, id string, status SessionStatus, err *string) error
	ListSessions(ctx context.Context, limit, offset int) ([]*Session, error)
	DeleteSession(ctx context.Context, id string) error

	// Frame operations
	InsertFrame(ctx context.Context, frame *FrameRecord) error
	ListFramesBySession(ctx context.Context, sessionID string, limit, offset int) ([]*FrameRecord, error)
	CountFrames(ctx context.Context, sessionID string) (int64, error)

	// Collision operations
	InsertCollisionEvents(ctx context.Context, events []*CollisionEvent) error
	ListCollisionEvents(ctx context.Context, sessionID string, limit, offset int) ([]*CollisionEvent, error)

	// Build log operations
	AppendBuildLog(ctx context.Context, entry *BuildLog) error
	ListBuildLogs(ctx context.Context, sessionID string, level *string, limit, offset int) ([]*BuildLog, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
