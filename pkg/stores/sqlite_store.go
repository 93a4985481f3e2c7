package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		cfg: cfg,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// Open database with SQLite-specific connection parameters. The
	// pragmas apply to every pooled connection.
	dsn := fmt.Sprintf("%s?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	// Verify connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// CreateSession creates a new session record
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, build_version, status, started_at, completed_at, error, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.BuildVersion,
		session.Status,
		session.StartedAt,
		session.CompletedAt,
		session.Error,
		session.Metadata,
		session.CreatedAt,
		session.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, build_version, status, started_at, completed_at, error, metadata, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`

	session := &Session{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.BuildVersion,
		&session.Status,
		&session.StartedAt,
		&session.CompletedAt,
		&session.Error,
		&session.Metadata,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// SetSessionBuildVersion stamps the build version reported during the
// handshake onto an existing session
func (s *SQLiteStore) SetSessionBuildVersion(ctx context.Context, id, version string) error {
	query := `UPDATE sessions SET build_version = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, version, id)
	if err != nil {
		return fmt.Errorf("failed to set build version: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("session not found: %s", id)
	}

	return nil
}

// CompleteSession updates the terminal status of a session
func (s *SQLiteStore) CompleteSession(ctx context.Context, id string, status SessionStatus, errMsg *string) error {
	query := `
		UPDATE sessions
		SET status = ?, error = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var completedAt *time.Time
	if status == SessionStatusCompleted || status == SessionStatusFailed {
		now := time.Now()
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx, query, status, errMsg, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("session not found: %s", id)
	}

	return nil
}

// ListSessions lists sessions with pagination
func (s *SQLiteStore) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	query := `
		SELECT id, build_version, status, started_at, completed_at, error, metadata, created_at, updated_at
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		session := &Session{}
		err := rows.Scan(
			&session.ID,
			&session.BuildVersion,
			&session.Status,
			&session.StartedAt,
			&session.CompletedAt,
			&session.Error,
			&session.Metadata,
			&session.CreatedAt,
			&session.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// DeleteSession deletes a session and its frames, collisions and logs
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("session not found: %s", id)
	}

	return nil
}

// InsertFrame inserts a frame record
func (s *SQLiteStore) InsertFrame(ctx context.Context, frame *FrameRecord) error {
	query := `
		INSERT INTO frames (session_id, number, command_count, payload_count, payload_types, latency_us, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		frame.SessionID,
		frame.Number,
		frame.CommandCount,
		frame.PayloadCount,
		frame.PayloadTypes,
		frame.LatencyUS,
		frame.RecordedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert frame: %w", err)
	}

	// Get the auto-generated ID
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get frame ID: %w", err)
	}

	frame.ID = id
	return nil
}

// ListFramesBySession lists frame records for a session in frame order
func (s *SQLiteStore) ListFramesBySession(ctx context.Context, sessionID string, limit, offset int) ([]*FrameRecord, error) {
	query := `
		SELECT id, session_id, number, command_count, payload_count, payload_types, latency_us, recorded_at
		FROM frames
		WHERE session_id = ?
		ORDER BY number ASC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	defer rows.Close()

	frames := []*FrameRecord{}
	for rows.Next() {
		frame := &FrameRecord{}
		err := rows.Scan(
			&frame.ID,
			&frame.SessionID,
			&frame.Number,
			&frame.CommandCount,
			&frame.PayloadCount,
			&frame.PayloadTypes,
			&frame.LatencyUS,
			&frame.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		frames = append(frames, frame)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating frames: %w", err)
	}

	return frames, nil
}

// CountFrames returns the number of recorded frames for a session
func (s *SQLiteStore) CountFrames(ctx context.Context, sessionID string) (int64, error) {
	query := `SELECT COUNT(*) FROM frames WHERE session_id = ?`

	var count int64
	if err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count frames: %w", err)
	}

	return count, nil
}

// InsertCollisionEvents inserts a batch of collision events in one transaction
func (s *SQLiteStore) InsertCollisionEvents(ctx context.Context, events []*CollisionEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
		INSERT INTO collision_events (session_id, frame_number, collider_id, collidee_id, state, floor, relative_speed, contact_count, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, event := range events {
		result, err := tx.ExecContext(ctx, query,
			event.SessionID,
			event.FrameNumber,
			event.ColliderID,
			event.CollideeID,
			event.State,
			event.Floor,
			event.RelativeSpeed,
			event.ContactCount,
			event.RecordedAt,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert collision event: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to get collision event ID: %w", err)
		}
		event.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collision events: %w", err)
	}

	return nil
}

// ListCollisionEvents lists collision events for a session in frame order
func (s *SQLiteStore) ListCollisionEvents(ctx context.Context, sessionID string, limit, offset int) ([]*CollisionEvent, error) {
	query := `
		SELECT id, session_id, frame_number, collider_id, collidee_id, state, floor, relative_speed, contact_count, recorded_at
		FROM collision_events
		WHERE session_id = ?
		ORDER BY frame_number ASC, id ASC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list collision events: %w", err)
	}
	defer rows.Close()

	events := []*CollisionEvent{}
	for rows.Next() {
		event := &CollisionEvent{}
		err := rows.Scan(
			&event.ID,
			&event.SessionID,
			&event.FrameNumber,
			&event.ColliderID,
			&event.CollideeID,
			&event.State,
			&event.Floor,
			&event.RelativeSpeed,
			&event.ContactCount,
			&event.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collision event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collision events: %w", err)
	}

	return events, nil
}

// AppendBuildLog appends a build log entry
func (s *SQLiteStore) AppendBuildLog(ctx context.Context, entry *BuildLog) error {
	query := `
		INSERT INTO build_logs (session_id, frame_number, level, message, object_type, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		entry.SessionID,
		entry.FrameNumber,
		entry.Level,
		entry.Message,
		entry.ObjectType,
		entry.RecordedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append build log: %w", err)
	}

	// Get the auto-generated ID
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get build log ID: %w", err)
	}

	entry.ID = id
	return nil
}

// ListBuildLogs lists build log entries with an optional level filter
func (s *SQLiteStore) ListBuildLogs(ctx context.Context, sessionID string, level *string, limit, offset int) ([]*BuildLog, error) {
	query := `
		SELECT id, session_id, frame_number, level, message, object_type, recorded_at
		FROM build_logs
		WHERE session_id = ?
		  AND (? IS NULL OR level = ?)
		ORDER BY frame_number ASC, id ASC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID, level, level, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list build logs: %w", err)
	}
	defer rows.Close()

	entries := []*BuildLog{}
	for rows.Next() {
		entry := &BuildLog{}
		err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&entry.FrameNumber,
			&entry.Level,
			&entry.Message,
			&entry.ObjectType,
			&entry.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build log: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating build logs: %w", err)
	}

	return entries, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
