// Package sqlite implements the SQLite persistence backend for thicket.
// JSONL files in the data directory are the source of truth; SQLite is the
// query engine rebuilt from them on every Attach.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/thicket/internal/jsonl"
	"github.com/mesh-intelligence/thicket/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// File names inside the data directory.
const (
	dbFile          = "thicket.db"
	objectsJSONL    = "objects.jsonl"
	fieldValueJSONL = "field_values.jsonl"
)

// Backend implements types.Backend on SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

var _ types.Backend = (*Backend)(nil)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens the backend. It creates DataDir if needed, rebuilds the
// SQLite database from scratch, and loads the JSONL files into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	dbPath := filepath.Join(dataDir, dbFile)
	// The database is a cache of the JSONL files.
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return err
	}

	for _, name := range []string{objectsJSONL, fieldValueJSONL} {
		if err := jsonl.Touch(filepath.Join(dataDir, name)); err != nil {
			db.Close()
			return fmt.Errorf("init %s: %w", name, err)
		}
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	config.DataDir = dataDir
	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach releases all resources held by the backend. After Detach every
// operation returns ErrBackendDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}
