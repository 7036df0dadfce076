package sequence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the state of a compile record.
type RunStatus string

// Compile record states.
const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is the persisted record of one compile.
type Run struct {
	ID         string     `json:"id"`
	Sequence   string     `json:"sequence"`
	Status     RunStatus  `json:"status"`
	StorePath  string     `json:"store_path"`
	FrameCount int        `json:"frame_count"`
	Width      int        `json:"width"`
	FrameRate  float64    `json:"frame_rate"`
	BPM        float64    `json:"bpm"`
	Checksum   string     `json:"checksum,omitempty"`
	Dropped    int        `json:"dropped"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Repository defines persistence for compile records.
type Repository interface {
	Create(ctx context.Context, run *Run) error
	Finish(ctx context.Context, run *Run) error
	Latest(ctx context.Context, sequence string) (*Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
}

// SQLiteRepository stores compile records in the compile_runs table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a compile record repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts run. ID, Status and StartedAt are filled when empty.
func (r *SQLiteRepository) Create(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = "run-" + uuid.NewString()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO compile_runs (id, sequence, status, store_path, frame_count, width, frame_rate, bpm, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Sequence, string(run.Status), run.StorePath,
		run.FrameCount, run.Width, run.FrameRate, run.BPM,
		run.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting compile run: %w", err)
	}
	return nil
}

// Finish records the outcome of run. FinishedAt is set to now when nil.
func (r *SQLiteRepository) Finish(ctx context.Context, run *Run) error {
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE compile_runs
		 SET status = ?, frame_count = ?, width = ?, checksum = ?, dropped = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		string(run.Status), run.FrameCount, run.Width,
		nullableString(run.Checksum), run.Dropped, nullableString(run.Error),
		run.FinishedAt.UTC().Format(timeLayout), run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating compile run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

// Latest returns the most recent record for sequence.
func (r *SQLiteRepository) Latest(ctx context.Context, sequence string) (*Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM compile_runs WHERE sequence = ? ORDER BY started_at DESC LIMIT 1`,
		sequence,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, sequence)
	}
	return run, err
}

// List returns up to limit records, most recent first. limit defaults to
// 50 and is capped at 500.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	limit = min(limit, 500) //nolint:mnd // max page size

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM compile_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying compile runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating compile runs: %w", err)
	}
	return runs, nil
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

const runColumns = `id, sequence, status, store_path, frame_count, width, frame_rate, bpm, checksum, dropped, error, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*Run, error) {
	var (
		run        Run
		status     string
		checksum   sql.NullString
		errText    sql.NullString
		startedAt  string
		finishedAt sql.NullString
	)
	err := s.Scan(&run.ID, &run.Sequence, &status, &run.StorePath, &run.FrameCount, &run.Width,
		&run.FrameRate, &run.BPM, &checksum, &run.Dropped, &errText, &startedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning compile run: %w", err)
	}

	run.Status = RunStatus(status)
	run.Checksum = checksum.String
	run.Error = errText.String
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if finishedAt.Valid {
		t, err := time.Parse(timeLayout, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

// nullableString returns nil for empty strings, or the string otherwise.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
