package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"implindex/internal/analysis"
	"implindex/internal/index"
)

var _ Store = (*SQLiteStore)(nil)

// timeLayout keeps fractional seconds fixed-width so stored timestamps sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			root TEXT PRIMARY KEY,
			fingerprint TEXT,
			built_at TEXT,
			stats JSON
		);`,
		`CREATE TABLE IF NOT EXISTS documents (
			root TEXT,
			id TEXT,
			type TEXT,
			text TEXT,
			body JSON,
			PRIMARY KEY (root, id)
		);`,
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id TEXT PRIMARY KEY,
			root TEXT,
			created_at TEXT,
			summary JSON,
			issues JSON
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(root, type);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_root ON analysis_runs(root, created_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- IndexStore Implementation ---

func (s *SQLiteStore) SaveIndex(ctx context.Context, idx *index.Index) error {
	if idx == nil {
		return errors.New("nil index")
	}
	stats, err := json.Marshal(idx.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The stored snapshot mirrors the index exactly; stale documents go.
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE root = ?`, idx.Root); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (root, fingerprint, built_at, stats) VALUES (?, ?, ?, ?)
		ON CONFLICT(root) DO UPDATE SET
			fingerprint=excluded.fingerprint,
			built_at=excluded.built_at,
			stats=excluded.stats
	`, idx.Root, idx.Fingerprint(), idx.BuiltAt.UTC().Format(timeLayout), stats)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (root, id, type, text, body) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, doc := range idx.Documents() {
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode document %s: %w", doc.DocID(), err)
		}
		if _, err := stmt.ExecContext(ctx, idx.Root, doc.DocID(), string(doc.Kind()), doc.SearchText(), body); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Snapshot(ctx context.Context, root string) (*SnapshotInfo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT root, fingerprint, built_at, stats FROM snapshots WHERE root = ?`, root)

	var info SnapshotInfo
	var builtAt string
	var stats []byte
	if err := row.Scan(&info.Root, &info.Fingerprint, &builtAt, &stats); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot for %s: %w", root, ErrNotFound)
		}
		return nil, err
	}
	info.BuiltAt, _ = time.Parse(timeLayout, builtAt)
	if len(stats) > 0 {
		_ = json.Unmarshal(stats, &info.Stats)
	}
	return &info, nil
}

func (s *SQLiteStore) LoadDocuments(ctx context.Context, root string, types ...index.DocType) ([]StoredDocument, error) {
	query := `SELECT id, type, text, body FROM documents WHERE root = ?`
	args := []any{root}
	if len(types) > 0 {
		query += ` AND type IN (?` + strings.Repeat(", ?", len(types)-1) + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []StoredDocument
	for rows.Next() {
		var d StoredDocument
		var typ string
		var body []byte
		if err := rows.Scan(&d.ID, &typ, &d.Text, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Type = index.DocType(typ)
		d.Body = json.RawMessage(body)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// --- AnalysisStore Implementation ---

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, root string, res *analysis.Result) (string, error) {
	if res == nil {
		return "", errors.New("nil analysis result")
	}
	summary, err := json.Marshal(res.Summary)
	if err != nil {
		return "", err
	}
	issues, err := json.Marshal(res.Issues)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, root, created_at, summary, issues) VALUES (?, ?, ?, ?, ?)
	`, id, root, time.Now().UTC().Format(timeLayout), summary, issues)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) LatestAnalysis(ctx context.Context, root string) (*AnalysisRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, root, created_at, summary, issues FROM analysis_runs
		WHERE root = ? ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, root)

	run := AnalysisRun{Result: &analysis.Result{}}
	var createdAt string
	var summary, issues []byte
	if err := row.Scan(&run.ID, &run.Root, &createdAt, &summary, &issues); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("analysis for %s: %w", root, ErrNotFound)
		}
		return nil, err
	}
	run.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if err := json.Unmarshal(summary, &run.Result.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	if err := json.Unmarshal(issues, &run.Result.Issues); err != nil {
		return nil, fmt.Errorf("failed to decode issues: %w", err)
	}
	return &run, nil
}
