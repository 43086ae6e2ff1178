package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/thicket/internal/graph"
	"github.com/mesh-intelligence/thicket/internal/journal"
	"github.com/mesh-intelligence/thicket/internal/schema"
	"github.com/mesh-intelligence/thicket/pkg/backend"
	"github.com/mesh-intelligence/thicket/pkg/types"
)

const (
	defaultSchemaFile = "schema.yaml"
	journalFile       = "journal.jsonl"
)

var errUsage = errors.New("usage")

// session is one attached backend with a store fluffing from it.
type session struct {
	ctx     context.Context
	reg     *schema.Registry
	backend types.Backend
	store   *graph.Store
	journal *journal.Journal
}

// schemaPath returns the schema document location. A relative schema_file
// is taken relative to the config directory.
func schemaPath(e env) string {
	p := e.config.SchemaFile
	if p == "" {
		p = defaultSchemaFile
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(e.configDir, p)
	}
	return p
}

// newBackend returns a detached backend of the configured kind.
func newBackend(e env) (types.Backend, error) {
	return backend.New(e.config.Backend, backend.WithLogger(e.logger))
}

// openSession loads the schema, attaches the backend, and opens a store
// that records into a fresh journal.
func openSession(ctx context.Context, e env) (*session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reg, err := schema.LoadYAML(schemaPath(e))
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	b, err := newBackend(e)
	if err != nil {
		return nil, err
	}
	if err := b.Attach(e.config); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	j := journal.New()
	store := graph.Open(reg, b,
		graph.WithLogger(e.logger),
		graph.WithRecorder(j),
		graph.WithFastOwningLookup(e.config.FastOwningLookup),
	)
	return &session{ctx: ctx, reg: reg, backend: b, store: store, journal: j}, nil
}

// close releases the store and detaches the backend.
func (s *session) close() error {
	return errors.Join(s.store.Close(), s.backend.Detach())
}

// mutate runs fn as one journal task, then saves the store and appends the
// task to the journal file in the data directory. A failing fn leaves the
// backend untouched.
func (s *session) mutate(label string, fn func() error) error {
	if err := s.journal.Begin(label); err != nil {
		return err
	}
	if err := fn(); err != nil {
		s.journal.Abort()
		return err
	}
	if _, err := s.journal.Commit(); err != nil {
		return err
	}
	if err := s.store.Save(s.ctx, s.backend); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return s.journal.AppendJSONL(filepath.Join(current.config.DataDir, journalFile))
}

// resolve returns the live object with the given id.
func (s *session) resolve(id string) (*graph.Object, error) {
	return s.store.Resolve(types.ID(id))
}

// field looks up a field of o by name, static or custom.
func (s *session) field(o *graph.Object, name string) (types.FieldInfo, error) {
	id, ok := s.reg.FieldByName(o.Class(), name)
	if !ok {
		return types.FieldInfo{}, fmt.Errorf("%s has no field %q: %w", o.Class(), name, types.ErrInvalidField)
	}
	info, _ := s.reg.Field(id)
	return info, nil
}

// fieldName returns the declared name of f, or its number.
func (s *session) fieldName(f types.FieldID) string {
	if info, ok := s.reg.Field(f); ok {
		return info.Name
	}
	return fmt.Sprint(int32(f))
}
