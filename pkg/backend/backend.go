// Package backend is the public factory for thicket persistence backends.
// It selects an implementation by name while keeping the implementations
// internal.
//
// Example:
//
//	b, err := backend.New(types.BackendSQLite)
//	if err != nil { ... }
//	err = b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: ".thicket"})
//	defer b.Detach()
//	store := graph.Open(catalog, b)
package backend

import (
	"log/slog"

	"github.com/mesh-intelligence/thicket/internal/badger"
	"github.com/mesh-intelligence/thicket/internal/sqlite"
	"github.com/mesh-intelligence/thicket/pkg/types"
)

// Option configures backend construction.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	inMemory bool
}

// WithLogger routes backend-internal logging to logger where supported.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithInMemory keeps data in memory where the backend supports it
// (badger). The sqlite backend always persists to DataDir.
func WithInMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// New returns a detached backend for name. Call Attach before use.
func New(name string, opts ...Option) (types.Backend, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	switch name {
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	case types.BackendBadger:
		var bopts []badger.Option
		if o.logger != nil {
			bopts = append(bopts, badger.WithLogger(o.logger))
		}
		if o.inMemory {
			bopts = append(bopts, badger.WithInMemory())
		}
		return badger.NewBackend(bopts...), nil
	case "":
		return nil, types.ErrBackendEmpty
	default:
		return nil, types.ErrBackendUnknown
	}
}
