package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"implindex/internal/analysis"
	"implindex/internal/index"
)

// ErrNotFound is returned when nothing is stored for the requested key.
var ErrNotFound = errors.New("not found")

// Store combines index snapshot and analysis run persistence.
type Store interface {
	IndexStore
	AnalysisStore
	Close() error
}

// IndexStore persists index snapshots, one per project root.
type IndexStore interface {
	// SaveIndex replaces the stored snapshot of idx.Root with idx.
	SaveIndex(ctx context.Context, idx *index.Index) error

	// Snapshot returns metadata of the stored snapshot for root.
	Snapshot(ctx context.Context, root string) (*SnapshotInfo, error)

	// LoadDocuments returns stored documents of root, optionally filtered by type.
	LoadDocuments(ctx context.Context, root string, types ...index.DocType) ([]StoredDocument, error)
}

// AnalysisStore records analysis runs.
type AnalysisStore interface {
	// SaveAnalysis stores res and returns the new run id.
	SaveAnalysis(ctx context.Context, root string, res *analysis.Result) (string, error)

	// LatestAnalysis returns the most recent run for root.
	LatestAnalysis(ctx context.Context, root string) (*AnalysisRun, error)
}

// SnapshotInfo describes a stored index snapshot.
type SnapshotInfo struct {
	Root        string           `json:"root"`
	Fingerprint string           `json:"fingerprint"`
	BuiltAt     time.Time        `json:"builtAt"`
	Stats       index.BuildStats `json:"stats"`
}

// StoredDocument is a persisted index document. Body holds the full JSON
// encoding of the document.
type StoredDocument struct {
	ID   string          `json:"id"`
	Type index.DocType   `json:"type"`
	Text string          `json:"text"`
	Body json.RawMessage `json:"body"`
}

// AnalysisRun is a persisted analysis result.
type AnalysisRun struct {
	ID        string           `json:"id"`
	Root      string           `json:"root"`
	CreatedAt time.Time        `json:"createdAt"`
	Result    *analysis.Result `json:"result"`
}
