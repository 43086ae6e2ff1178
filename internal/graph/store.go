package graph

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

// Store is the identity map of one object graph. It owns the objects, the
// reference index, and the custom property overlay, and it is the only way
// to mutate the graph.
//
// A Store is single-writer: structural mutations must not run concurrently.
// Readers may run alongside one another; lazily derived data (owner field
// resolution, fluffing from the source) is guarded internally.
type Store struct {
	catalog  types.Catalog
	recorder types.Recorder
	source   types.Source
	log      *slog.Logger
	clock    func() time.Time
	fast     bool
	rules    map[types.ClassID]*Rules

	mu         sync.RWMutex // guards the maps below
	objects    map[types.ID]*Object
	byHandle   map[types.Handle]*Object
	retired    map[types.ID]bool
	retiredH   map[types.Handle]bool
	unsaved    []types.ID
	nextHandle types.Handle
	removed    int // objects retired over the store's lifetime

	loadMu sync.Mutex // serializes fluffing
	closed atomic.Bool

	refs   *refIndex
	custom *CustomStore
}

// Option configures a Store.
type Option func(*Store)

// WithRecorder sets the change recorder notified of every mutation.
func WithRecorder(r types.Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSource sets the source placeholders are fluffed from.
func WithSource(src types.Source) Option {
	return func(s *Store) { s.source = src }
}

// WithFastOwningLookup enables the longest-vector heuristic when resolving
// an object's owning field.
func WithFastOwningLookup(enabled bool) Option {
	return func(s *Store) { s.fast = enabled }
}

// WithRules registers class-specific rules.
func WithRules(class types.ClassID, r Rules) Option {
	return func(s *Store) { s.rules[class] = &r }
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStore creates an empty store over catalog.
func NewStore(catalog types.Catalog, opts ...Option) *Store {
	s := &Store{
		catalog:  catalog,
		recorder: types.NopRecorder{},
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:    time.Now,
		rules:    make(map[types.ClassID]*Rules),
		objects:  make(map[types.ID]*Object),
		byHandle: make(map[types.Handle]*Object),
		retired:  make(map[types.ID]bool),
		retiredH: make(map[types.Handle]bool),
		refs:     newRefIndex(),
	}
	s.custom = newCustomStore(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a store that fluffs objects from an attached backend.
func Open(catalog types.Catalog, backend types.Backend, opts ...Option) *Store {
	return NewStore(catalog, append(opts, WithSource(backend))...)
}

// Catalog returns the schema catalog the store dispatches on.
func (s *Store) Catalog() types.Catalog { return s.catalog }

// Custom returns the custom property overlay owned by this store.
func (s *Store) Custom() *CustomStore { return s.custom }

// Close tears the store down. Every later operation on it or its objects
// fails with ErrUnusableStore.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return types.ErrUnusableStore
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.objects)
	clear(s.byHandle)
	return nil
}

func (s *Store) usable() error {
	if s == nil || s.closed.Load() {
		return types.ErrUnusableStore
	}
	return nil
}

// Len returns the number of resident live objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Create makes a new ownerless object of class.
func (s *Store) Create(class types.ClassID) (*Object, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if !s.catalog.HasClass(class) {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownClass, class)
	}
	if s.catalog.IsAbstract(class) {
		return nil, fmt.Errorf("%w: %s is abstract", types.ErrUnknownClass, class)
	}
	o := s.register(types.NewID(), class, true)
	s.recorder.ObjectCreated(o.id, class)
	objectsCreated.WithLabelValues(string(class)).Inc()

	if f := s.rulesFor(class).CreatedField; f != 0 {
		if err := o.SetValue(f, s.clock()); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// CreateOwned creates an object of class and places it in field of owner at
// index (types.NoOrdinal appends). If the placement fails the new object is
// deleted again.
func (s *Store) CreateOwned(class types.ClassID, owner *Object, field types.FieldID, index int) (*Object, error) {
	if err := owner.check(); err != nil {
		return nil, err
	}
	o, err := s.Create(class)
	if err != nil {
		return nil, err
	}
	if err := s.SetOwner(o, owner, field, index); err != nil {
		if derr := s.deleteObject(o, causeExplicit); derr != nil {
			return nil, errors.Join(err, derr)
		}
		return nil, err
	}
	return o, nil
}

// register adds a new resident object. fresh marks objects created in this
// session.
func (s *Store) register(id types.ID, class types.ClassID, fresh bool) *Object {
	o := s.newObject(id, class, fresh)
	s.publish(o)
	return o
}

func (s *Store) newObject(id types.ID, class types.ClassID, fresh bool) *Object {
	return &Object{
		store:  s,
		id:     id,
		class:  class,
		fresh:  fresh,
		values: make(map[types.FieldID]any),
	}
}

// publish assigns o a handle and makes it visible to lookups. o must be
// fully built: readers reach it without further locking.
func (s *Store) publish(o *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandle++
	o.handle = s.nextHandle
	s.objects[o.id] = o
	s.byHandle[o.handle] = o
}

func (s *Store) lookup(id types.ID) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[id]
	return o, ok
}

// Resolve returns the live object with id, fluffing it from the source on
// first access.
func (s *Store) Resolve(id types.ID) (*Object, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, types.ErrUninitializedObject
	}
	if o, ok := s.lookup(id); ok {
		return o, nil
	}
	s.mu.RLock()
	gone := s.retired[id]
	s.mu.RUnlock()
	if gone {
		return nil, fmt.Errorf("%w: %s", types.ErrDeletedObject, id)
	}
	if s.source == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	return s.fluff(id)
}

// ResolveHandle returns the live object with handle h.
func (s *Store) ResolveHandle(h types.Handle) (*Object, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.byHandle[h]; ok {
		return o, nil
	}
	if s.retiredH[h] {
		return nil, fmt.Errorf("%w: handle %d", types.ErrDeletedObject, h)
	}
	return nil, fmt.Errorf("%w: handle %d", types.ErrNotFound, h)
}

func (s *Store) fluff(id types.ID) (*Object, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if o, ok := s.lookup(id); ok {
		return o, nil
	}
	rec, err := s.source.Load(context.Background(), id)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", id, err)
	}
	o, err := s.materialize(rec)
	if err != nil {
		return nil, err
	}
	fluffs.Inc()
	s.log.Debug("fluffed object", "id", id, "class", rec.Class)
	return o, nil
}

// AllOfClass returns every live object of class or a class deriving from
// it, loading any that are not yet resident. Objects are ordered by handle.
func (s *Store) AllOfClass(class types.ClassID) ([]*Object, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	classes := s.catalog.DerivedClasses(class)
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownClass, class)
	}
	if s.source != nil {
		ids, err := s.source.IDsOfClass(context.Background(), classes)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", class, err)
		}
		for _, id := range ids {
			s.mu.RLock()
			gone := s.retired[id]
			s.mu.RUnlock()
			if gone {
				continue
			}
			if _, err := s.Resolve(id); err != nil {
				return nil, err
			}
		}
	}

	s.mu.RLock()
	var out []*Object
	for _, o := range s.objects {
		if slices.Contains(classes, o.class) {
			out = append(out, o)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Object) int { return cmp.Compare(a.handle, b.handle) })
	return out, nil
}

// retire removes a deleted object from the identity map. Its id and handle
// stay reserved so later lookups report ErrDeletedObject.
func (s *Store) retire(o *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.state = types.StateDeleted
	delete(s.objects, o.id)
	delete(s.byHandle, o.handle)
	s.retired[o.id] = true
	s.retiredH[o.handle] = true
	s.unsaved = append(s.unsaved, o.id)
	s.removed++
}

func (s *Store) removedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.removed
}
