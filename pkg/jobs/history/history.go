// Package history keeps jobs submitted from this machine in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glycoshape/glyco/pkg/api/types/progress"
	"github.com/glycoshape/glyco/pkg/jobs"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("job is not in history")

type Entry struct {
	JobId       string
	Protein     string
	SubmittedAt time.Time

	// empty until the first progress document
	Status   progress.Status
	Progress int

	Output string
	Clash  bool

	UpdatedAt time.Time
}

type History struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the history database at path.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory for history: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history: %w", err)
	}

	h := &History{db: db, now: time.Now}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history: %w", err)
	}
	return h, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) initSchema() error {
	_, err := h.db.Exec(`
	CREATE TABLE IF NOT EXISTS jobs (
		job_id TEXT PRIMARY KEY,
		protein TEXT NOT NULL,
		submitted_at INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT '',
		progress INTEGER NOT NULL DEFAULT 0,
		output TEXT NOT NULL DEFAULT '',
		clash INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_submitted_at ON jobs(submitted_at);
	`)
	return err
}

// Record adds a submitted job. Recording the same job again replaces it.
func (h *History) Record(ctx context.Context, protein string, sub jobs.Submission) error {
	now := h.now()
	_, err := h.db.ExecContext(
		ctx,
		`INSERT INTO jobs (job_id, protein, submitted_at, output, clash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			protein = excluded.protein,
			submitted_at = excluded.submitted_at,
			status = '',
			progress = 0,
			output = excluded.output,
			clash = excluded.clash,
			updated_at = excluded.updated_at`,
		sub.Handle, protein, now.UnixMilli(), sub.Result.Output, sub.Result.Clash, now.UnixMilli(),
	)
	return err
}

// Update stores the latest progress of a job.
//
// Jobs not in history are added with unknown protein.
// A terminal status is never overwritten by in_progress.
func (h *History) Update(ctx context.Context, jobId string, doc progress.Document) error {
	now := h.now().UnixMilli()
	_, err := h.db.ExecContext(
		ctx,
		`INSERT INTO jobs (job_id, protein, submitted_at, status, progress, updated_at)
		VALUES (?, '', ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			updated_at = excluded.updated_at
		WHERE jobs.status NOT IN (?, ?) OR excluded.status IN (?, ?)`,
		jobId, now, string(doc.Status), doc.Progress, now,
		string(progress.Finished), string(progress.Error),
		string(progress.Finished), string(progress.Error),
	)
	return err
}

const columns = `job_id, protein, submitted_at, status, progress, output, clash, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (Entry, error) {
	e := Entry{}
	var submittedAt, updatedAt int64
	var status string
	if err := row.Scan(
		&e.JobId, &e.Protein, &submittedAt, &status, &e.Progress, &e.Output, &e.Clash, &updatedAt,
	); err != nil {
		return Entry{}, err
	}
	e.Status = progress.Status(status)
	e.SubmittedAt = time.UnixMilli(submittedAt)
	e.UpdatedAt = time.UnixMilli(updatedAt)
	return e, nil
}

func (h *History) Get(ctx context.Context, jobId string) (Entry, error) {
	e, err := scan(h.db.QueryRowContext(ctx, `SELECT `+columns+` FROM jobs WHERE job_id = ?`, jobId))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, jobId)
	}
	return e, err
}

// List returns jobs, newest first. limit <= 0 means no limit.
func (h *History) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.QueryContext(
		ctx,
		`SELECT `+columns+` FROM jobs ORDER BY submitted_at DESC, job_id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type Printer interface {
	Printf(format string, v ...any)
}

// Observer returns a jobs.Observer recording progress into h.
//
// Failures are logged and do not stop polling.
func (h *History) Observer(ctx context.Context, logger Printer) jobs.Observer {
	return func(u jobs.Update) {
		if u.Err != nil || u.State == jobs.StateLoading {
			return
		}
		if err := h.Update(ctx, u.Handle, u.Document); err != nil && logger != nil {
			logger.Printf("cannot record progress of %s: %s", u.Handle, err)
		}
	}
}
