package playback

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Session is the persisted record of one playback run.
type Session struct {
	ID         string     `json:"id"`
	Sequence   string     `json:"sequence"`
	Endpoints  []string   `json:"endpoints"`
	Stats      Stats      `json:"stats"`
	Outcome    string     `json:"outcome,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Repository defines persistence for playback sessions.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	Finish(ctx context.Context, s *Session) error
	List(ctx context.Context, limit int) ([]Session, error)
}

// SQLiteRepository stores sessions in the playback_sessions table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a playback session repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Create inserts s. StartedAt defaults to now.
func (r *SQLiteRepository) Create(ctx context.Context, s *Session) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO playback_sessions (id, sequence, endpoints, started_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.Sequence, strings.Join(s.Endpoints, ","), s.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting playback session: %w", err)
	}
	return nil
}

// Finish stores the final stats and outcome of s.
func (r *SQLiteRepository) Finish(ctx context.Context, s *Session) error {
	if s.FinishedAt == nil {
		now := time.Now().UTC()
		s.FinishedAt = &now
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE playback_sessions
		 SET frames_sent = ?, late_frames = ?, max_lateness = ?, send_errors = ?, outcome = ?, finished_at = ?
		 WHERE id = ?`,
		s.Stats.Frames, s.Stats.Late, s.Stats.MaxLateness.Microseconds(), s.Stats.SendErrors,
		s.Outcome, s.FinishedAt.UTC().Format(timeLayout), s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating playback session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, s.ID)
	}
	return nil
}

// List returns up to limit sessions, newest first. limit defaults to 50.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sequence, endpoints, frames_sent, late_frames, max_lateness, send_errors, outcome, started_at, finished_at
		 FROM playback_sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying playback sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			s          Session
			endpoints  string
			maxLate    int64
			outcome    sql.NullString
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Sequence, &endpoints, &s.Stats.Frames, &s.Stats.Late, &maxLate,
			&s.Stats.SendErrors, &outcome, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning playback session: %w", err)
		}
		if endpoints != "" {
			s.Endpoints = strings.Split(endpoints, ",")
		}
		s.Stats.MaxLateness = time.Duration(maxLate) * time.Microsecond
		s.Outcome = outcome.String
		if s.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if finishedAt.Valid {
			t, err := time.Parse(timeLayout, finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing finished_at: %w", err)
			}
			s.FinishedAt = &t
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating playback sessions: %w", err)
	}
	return out, nil
}
