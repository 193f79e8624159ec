package report

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
)

// ErrNotFound is returned when no run has been recorded yet.
var ErrNotFound = errors.New("report: no recorded run")

// Store persists run records.
type Store interface {
	Load() (Record, error)
	Save(Record) error
}

// Repository stores the last run record within the state directory.
type Repository struct {
	path string
}

// NewRepository creates a repository rooted at stateDir.
func NewRepository(stateDir string) *Repository {
	return &Repository{path: filepath.Join(stateDir, "last-run.json")}
}

// Path returns the file backing the repository.
func (r *Repository) Path() string {
	return r.path
}

// Load reads the persisted record if present.
func (r *Repository) Load() (Record, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Save replaces the stored record atomically.
func (r *Repository) Save(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return atomicwriter.WriteFile(r.path, append(encoded, '\n'), 0o644)
}
