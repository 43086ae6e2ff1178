// Package badger implements the BadgerDB persistence backend for thicket.
//
// Each record is stored under "o:<id>" as JSON. A secondary key
// "c:<class>:<id>" with an empty value indexes records by class so that
// IDsOfClass is a prefix scan.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	bdb "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

const (
	objectPrefix = "o:"
	classPrefix  = "c:"
	dbDir        = "badger"
)

// Option configures a Backend.
type Option func(*Backend)

// WithInMemory keeps the database in memory; DataDir is ignored.
func WithInMemory() Option {
	return func(b *Backend) { b.inMemory = true }
}

// WithLogger routes badger's internal logging to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) { b.logger = logger }
}

// WithMemTableSize sets badger's memtable size. A single transaction may
// use at most 15% of it, so small tables make Put split saves into more
// transactions.
func WithMemTableSize(n int64) Option {
	return func(b *Backend) { b.memTableSize = n }
}

// Backend implements types.Backend on BadgerDB.
type Backend struct {
	mu           sync.RWMutex
	attached     bool
	inMemory     bool
	memTableSize int64
	logger       *slog.Logger
	db           *bdb.DB
}

var _ types.Backend = (*Backend)(nil)

// NewBackend creates a detached backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// badgerLogger adapts slog to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Attach opens the database under DataDir/badger.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	var opts bdb.Options
	if b.inMemory {
		opts = bdb.DefaultOptions("").WithInMemory(true)
	} else {
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		path := filepath.Join(dataDir, dbDir)
		if err := os.MkdirAll(path, 0o750); err != nil {
			return fmt.Errorf("create database directory %s: %w", path, err)
		}
		opts = bdb.DefaultOptions(path).WithSyncWrites(true)
	}
	if b.memTableSize > 0 {
		maxBatch := b.memTableSize * 15 / 100
		opts = opts.WithMemTableSize(b.memTableSize).WithValueThreshold(min(opts.ValueThreshold, maxBatch/2))
	}
	if b.logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: b.logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := bdb.Open(opts)
	if err != nil {
		return fmt.Errorf("open badger database: %w", err)
	}
	b.db = db
	b.attached = true
	return nil
}

// Detach closes the database. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	b.attached = false
	return err
}

func objectKey(id types.ID) []byte {
	return []byte(objectPrefix + string(id))
}

func classKey(class types.ClassID, id types.ID) []byte {
	return []byte(classPrefix + string(class) + ":" + string(id))
}

// Load returns the record stored under id, or ErrNotFound.
func (b *Backend) Load(_ context.Context, id types.ID) (types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.Record{}, types.ErrBackendDetached
	}

	var rec types.Record
	err := b.db.View(func(txn *bdb.Txn) error {
		item, err := txn.Get(objectKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, bdb.ErrKeyNotFound) {
		return types.Record{}, fmt.Errorf("object %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("loading object %s: %w", id, err)
	}
	return rec, nil
}

// IDsOfClass lists stored ids whose class is one of classes. Ids are
// grouped by class in the order given, and sorted within each class.
func (b *Backend) IDsOfClass(_ context.Context, classes []types.ClassID) ([]types.ID, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrBackendDetached
	}

	var ids []types.ID
	err := b.db.View(func(txn *bdb.Txn) error {
		opts := bdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, class := range classes {
			prefix := []byte(classPrefix + string(class) + ":")
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				key := it.Item().Key()
				ids = append(ids, types.ID(key[len(prefix):]))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing ids of %v: %w", classes, err)
	}
	return ids, nil
}

// Put upserts records and removes deleted ids. Writes share one transaction
// until badger reports it too big; the transaction is then committed and the
// rest continue in a new one, so a large save is durable in chunks rather
// than as a whole.
func (b *Backend) Put(_ context.Context, records []types.Record, deleted []types.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrBackendDetached
	}

	txn := b.db.NewTransaction(true)
	defer func() { txn.Discard() }()
	chunks := 1
	apply := func(fn func(*bdb.Txn) error) error {
		err := fn(txn)
		if !errors.Is(err, bdb.ErrTxnTooBig) {
			return err
		}
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("committing chunk %d: %w", chunks, err)
		}
		chunks++
		txn = b.db.NewTransaction(true)
		return fn(txn)
	}

	for _, id := range deleted {
		if err := apply(func(txn *bdb.Txn) error { return deleteRecord(txn, id) }); err != nil {
			return err
		}
	}
	for _, rec := range records {
		if rec.ID.IsZero() {
			return fmt.Errorf("record without id: %w", types.ErrInvalidField)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", rec.ID, err)
		}
		if err := apply(func(txn *bdb.Txn) error { return putRecord(txn, rec, data) }); err != nil {
			return err
		}
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	if chunks > 1 && b.logger != nil {
		b.logger.Debug("badger save split", "chunks", chunks, "records", len(records), "deleted", len(deleted))
	}
	return nil
}

// putRecord writes rec and its class index entry.
func putRecord(txn *bdb.Txn, rec types.Record, data []byte) error {
	// A record may change class across saves; drop the stale index key.
	if err := deleteRecord(txn, rec.ID); err != nil {
		return err
	}
	if err := txn.Set(objectKey(rec.ID), data); err != nil {
		return err
	}
	return txn.Set(classKey(rec.Class, rec.ID), nil)
}

// deleteRecord removes the record and its class index entry, if present.
func deleteRecord(txn *bdb.Txn, id types.ID) error {
	item, err := txn.Get(objectKey(id))
	if errors.Is(err, bdb.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var rec types.Record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return err
	}
	if err := txn.Delete(classKey(rec.Class, id)); err != nil {
		return err
	}
	return txn.Delete(objectKey(id))
}
