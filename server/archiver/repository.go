package archiver

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/marcopiovanello/m3u8-dl/server/internal"

	_ "modernc.org/sqlite"
)

type Entry struct {
	Id         string          `json:"id"`
	Filename   string          `json:"filename"`
	URL        string          `json:"url"`
	OutputPath string          `json:"output_path"`
	Status     internal.Status `json:"status"`
	Error      string          `json:"error,omitempty"`
	Duration   float64         `json:"duration"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Open initializes the history database inside dataDir
func Open(dataDir string) (*sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "history.db"))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// WAL is an optimization, not a requirement
	db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA journal_mode = WAL;
	`)

	return db, nil
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InitTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		url TEXT NOT NULL,
		output_path TEXT,
		status TEXT NOT NULL,
		error TEXT,
		duration REAL,
		created_time INTEGER,
		finished_time INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_history_finished ON history(finished_time);
	`
	_, err := r.db.Exec(query)
	return err
}

func (r *Repository) Archive(ctx context.Context, m internal.TaskSnapshot) error {
	query := `INSERT OR REPLACE INTO history
		(id, filename, url, output_path, status, error, duration, created_time, finished_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		m.Id,
		m.Filename,
		m.URL,
		m.OutputPath,
		string(m.Status),
		m.Error,
		m.Duration,
		m.CreatedAt.UnixMilli(),
		m.FinishedAt.UnixMilli(),
	)
	return err
}

// List returns at most limit entries, most recently finished first.
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, filename, url, output_path, status, error, duration, created_time, finished_time
		FROM history ORDER BY finished_time DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e                 Entry
			status            string
			output, errText   sql.NullString
			created, finished int64
		)
		if err := rows.Scan(&e.Id, &e.Filename, &e.URL, &output, &status, &errText, &e.Duration, &created, &finished); err != nil {
			return nil, err
		}
		e.OutputPath = output.String
		e.Status = internal.Status(status)
		e.Error = errText.String
		e.CreatedAt = time.UnixMilli(created)
		e.FinishedAt = time.UnixMilli(finished)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
