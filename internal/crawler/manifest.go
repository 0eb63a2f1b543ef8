package crawler

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"implindex/internal/extractor"
)

// DefaultManifestPath is where discovery results are cached, relative to
// the project root.
const DefaultManifestPath = ".implindex/discovery.json"

// ErrNoManifest is returned when no discovery manifest exists yet.
var ErrNoManifest = errors.New("no discovery manifest")

// ErrInvalidManifest is returned when a manifest does not match the
// manifest schema.
var ErrInvalidManifest = errors.New("invalid discovery manifest")

const manifestSchemaURL = "implindex://manifest.schema.json"

//go:embed manifest.schema.json
var manifestSchemaJSON string

var (
	schemaOnce     sync.Once
	manifestSchema *jsonschema.Schema
	schemaErr      error
)

func loadCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(manifestSchemaURL, strings.NewReader(manifestSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		manifestSchema, schemaErr = compiler.Compile(manifestSchemaURL)
	})
	return manifestSchema, schemaErr
}

// ValidateManifest checks raw manifest JSON against the manifest schema.
func ValidateManifest(data []byte) error {
	schema, err := loadCompiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile manifest schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return nil
}

// Metadata is the coarse per-file information discovery records.
type Metadata struct {
	ClassName  string `json:"className,omitempty"`
	Status     string `json:"status,omitempty"`
	HasMachine bool   `json:"hasMachine"`
	HasUI      bool   `json:"hasUI"`
}

// Entry names one candidate state definition file.
type Entry struct {
	Path     string            `json:"path"` // slash-separated, relative to Root
	Metadata Metadata          `json:"metadata"`
	Record   *extractor.Record `json:"record,omitempty"`
}

// Transition is a transition recorded directly by discovery.
type Transition struct {
	From        string   `json:"from"`
	Event       string   `json:"event"`
	To          string   `json:"to"`
	Platforms   []string `json:"platforms,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Manifest is the discovery result for one project.
type Manifest struct {
	Root        string       `json:"root"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Files       []Entry      `json:"files"`
	Transitions []Transition `json:"transitions,omitempty"`
}

// SaveManifest writes m as indented JSON, creating parent directories.
func SaveManifest(path string, m *Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadManifest reads a manifest written by SaveManifest or by another
// discovery tool. The file is validated against the manifest schema first.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNoManifest, path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := ValidateManifest(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}
	return &m, nil
}

// FileStore loads manifests from their conventional location under each
// project root.
type FileStore struct {
	// Rel is the manifest path relative to the project root.
	Rel string
}

// NewFileStore returns a store for manifests at rel under each root.
// An empty rel means DefaultManifestPath.
func NewFileStore(rel string) *FileStore {
	if rel == "" {
		rel = DefaultManifestPath
	}
	return &FileStore{Rel: rel}
}

// Path returns the manifest location for root.
func (s *FileStore) Path(root string) string {
	if filepath.IsAbs(s.Rel) {
		return s.Rel
	}
	return filepath.Join(root, s.Rel)
}

// ModTime reports when the manifest for root was last written.
func (s *FileStore) ModTime(root string) (time.Time, error) {
	info, err := os.Stat(s.Path(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, fmt.Errorf("%w at %s", ErrNoManifest, s.Path(root))
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Load reads the manifest for root.
func (s *FileStore) Load(root string) (*Manifest, error) {
	return LoadManifest(s.Path(root))
}

// Save writes the manifest for root.
func (s *FileStore) Save(root string, m *Manifest) error {
	return SaveManifest(s.Path(root), m)
}

// DirReader reads source files relative to a project root.
type DirReader struct {
	Root string
}

// ReadSource returns the content of the file at the slash-separated path.
func (r DirReader) ReadSource(path string) ([]byte, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Root, filepath.FromSlash(path))
	}
	return os.ReadFile(path)
}
