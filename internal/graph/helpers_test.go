package graph

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/thicket/internal/schema"
	"github.com/mesh-intelligence/thicket/pkg/types"
)

type fixture struct {
	reg   *schema.Registry
	store *Store
	rec   *spyRecorder

	// Folder
	title, children, bin, cover, tags, pinned types.FieldID
	// Item
	note, count, flag, when, guid, blob, created types.FieldID
	related, chain, next, detail                 types.FieldID
	// Item custom fields
	reviewer, score, extras, links, label, sidecar types.FieldID
}

func newRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r := schema.NewRegistry()
	require.NoError(t, r.DefineClass(schema.ClassDef{
		Name: "Item",
		Fields: []schema.FieldDef{
			{Name: "note", Kind: types.KindString},
			{Name: "count", Kind: types.KindInteger},
			{Name: "flag", Kind: types.KindBoolean},
			{Name: "when", Kind: types.KindTime},
			{Name: "guid", Kind: types.KindGUID},
			{Name: "blob", Kind: types.KindBinary},
			{Name: "created", Kind: types.KindTime, Untouchable: true},
			{Name: "related", Kind: types.KindReferenceCollection, Signature: "Item"},
			{Name: "chain", Kind: types.KindReferenceSequence, Signature: "Item"},
			{Name: "next", Kind: types.KindReferenceAtomic, Signature: "Item"},
			{Name: "detail", Kind: types.KindOwningAtomic, Signature: "Item"},
		},
	}))
	require.NoError(t, r.DefineClass(schema.ClassDef{
		Name: "Folder",
		Fields: []schema.FieldDef{
			{Name: "title", Kind: types.KindString},
			{Name: "children", Kind: types.KindOwningSequence, Signature: "Item"},
			{Name: "bin", Kind: types.KindOwningCollection, Signature: "Item"},
			{Name: "cover", Kind: types.KindOwningAtomic, Signature: "Item"},
			{Name: "tags", Kind: types.KindReferenceCollection, Signature: "Item"},
			{Name: "pinned", Kind: types.KindReferenceAtomic, Signature: "Folder"},
		},
	}))
	require.NoError(t, r.DefineClass(schema.ClassDef{Name: "Note", Base: "Item"}))
	custom := []schema.FieldDef{
		{Name: "reviewer", Kind: types.KindReferenceAtomic, Signature: "Item"},
		{Name: "score", Kind: types.KindInteger},
		{Name: "extras", Kind: types.KindOwningCollection, Signature: "Item"},
		{Name: "links", Kind: types.KindReferenceSequence, Signature: "Item"},
		{Name: "label", Kind: types.KindString},
		{Name: "sidecar", Kind: types.KindOwningAtomic, Signature: "Item"},
	}
	for _, def := range custom {
		_, err := r.AddCustomField("Item", def)
		require.NoError(t, err)
	}
	return r
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{reg: newRegistry(t), rec: &spyRecorder{}}
	f.store = NewStore(f.reg, append([]Option{WithRecorder(f.rec)}, opts...)...)
	f.bindFields(t)
	return f
}

func (f *fixture) bindFields(t *testing.T) {
	t.Helper()
	id := func(class types.ClassID, name string) types.FieldID {
		fid, ok := f.reg.FieldByName(class, name)
		require.True(t, ok, "%s.%s", class, name)
		return fid
	}
	f.title, f.children, f.bin = id("Folder", "title"), id("Folder", "children"), id("Folder", "bin")
	f.cover, f.tags, f.pinned = id("Folder", "cover"), id("Folder", "tags"), id("Folder", "pinned")
	f.note, f.count, f.flag, f.when = id("Item", "note"), id("Item", "count"), id("Item", "flag"), id("Item", "when")
	f.guid, f.blob, f.created = id("Item", "guid"), id("Item", "blob"), id("Item", "created")
	f.related, f.chain, f.next, f.detail = id("Item", "related"), id("Item", "chain"), id("Item", "next"), id("Item", "detail")
	f.reviewer, f.score, f.extras = id("Item", "reviewer"), id("Item", "score"), id("Item", "extras")
	f.links, f.label, f.sidecar = id("Item", "links"), id("Item", "label"), id("Item", "sidecar")
}

func (f *fixture) create(t *testing.T, class types.ClassID) *Object {
	t.Helper()
	o, err := f.store.Create(class)
	require.NoError(t, err)
	return o
}

func (f *fixture) child(t *testing.T, owner *Object, field types.FieldID) *Object {
	t.Helper()
	o, err := f.store.CreateOwned("Item", owner, field, types.NoOrdinal)
	require.NoError(t, err)
	return o
}

// spyRecorder keeps every notification as a short string.
type spyRecorder struct {
	mu      sync.Mutex
	events  []string
	deleted []types.Snapshot
}

func (r *spyRecorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *spyRecorder) ObjectCreated(id types.ID, class types.ClassID) {
	r.add("created %s", id)
}

func (r *spyRecorder) ObjectModified(id types.ID, field types.FieldID, _, _ any) {
	r.add("modified %s %d", id, field)
}

func (r *spyRecorder) OwnershipChanged(id types.ID, previous, current types.OwnerRef) {
	r.add("owner %s %s->%s", id, previous.Owner, current.Owner)
}

func (r *spyRecorder) ObjectDeleted(s types.Snapshot) {
	r.add("deleted %s", s.ID)
	r.mu.Lock()
	r.deleted = append(r.deleted, s)
	r.mu.Unlock()
}

func (r *spyRecorder) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.events, event)
}

func (r *spyRecorder) count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (r *spyRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.deleted = nil
}

// memBackend is an in-memory types.Backend.
type memBackend struct {
	mu      sync.Mutex
	records map[types.ID]types.Record
	loads   int
}

func newMemBackend() *memBackend {
	return &memBackend{records: make(map[types.ID]types.Record)}
}

func (m *memBackend) Attach(types.Config) error { return nil }
func (m *memBackend) Detach() error             { return nil }

func (m *memBackend) Load(_ context.Context, id types.ID) (types.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return types.Record{}, types.ErrNotFound
	}
	m.loads++
	return rec, nil
}

func (m *memBackend) IDsOfClass(_ context.Context, classes []types.ClassID) ([]types.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []types.ID
	for id, rec := range m.records {
		if slices.Contains(classes, rec.Class) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *memBackend) Put(_ context.Context, records []types.Record, deleted []types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		m.records[rec.ID] = rec
	}
	for _, id := range deleted {
		delete(m.records, id)
	}
	return nil
}

func (m *memBackend) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// reopen saves f's store into a fresh backend and returns a new fixture
// whose store fluffs from it.
func (f *fixture) reopen(t *testing.T, opts ...Option) (*fixture, *memBackend) {
	t.Helper()
	backend := newMemBackend()
	require.NoError(t, f.store.Save(context.Background(), backend))
	g := &fixture{reg: f.reg, rec: &spyRecorder{}}
	g.store = Open(f.reg, backend, append([]Option{WithRecorder(g.rec)}, opts...)...)
	g.bindFields(t)
	return g, backend
}

func itoa(f types.FieldID) string { return fmt.Sprint(int32(f)) }
