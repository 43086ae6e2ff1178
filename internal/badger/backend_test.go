package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

func config(dir string) types.Config {
	return types.Config{Backend: types.BackendBadger, DataDir: dir}
}

func inMemory(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend(WithInMemory())
	require.NoError(t, b.Attach(config("")))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

func records() []types.Record {
	return []types.Record{
		{ID: "f1", Class: "Folder", Fields: []types.FieldRecord{
			{Field: "children", Tag: "objs", Payload: "i1 i2"},
		}},
		{ID: "i1", Class: "Item", Owner: "f1", Fields: []types.FieldRecord{
			{Field: "label", Tag: "str", Payload: "x", Custom: true},
		}},
		{ID: "i2", Class: "Note", Owner: "f1"},
	}
}

func TestPutLoad(t *testing.T) {
	ctx := context.Background()
	b := inMemory(t)
	require.NoError(t, b.Put(ctx, records(), nil))

	rec, err := b.Load(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, records()[1], rec)

	_, err = b.Load(ctx, "nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestIDsOfClass(t *testing.T) {
	ctx := context.Background()
	b := inMemory(t)
	require.NoError(t, b.Put(ctx, records(), nil))

	ids, err := b.IDsOfClass(ctx, []types.ClassID{"Item", "Note"})
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"i1", "i2"}, ids)

	ids, err = b.IDsOfClass(ctx, []types.ClassID{"Missing"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPutChangesClass(t *testing.T) {
	ctx := context.Background()
	b := inMemory(t)
	require.NoError(t, b.Put(ctx, records(), nil))
	require.NoError(t, b.Put(ctx, []types.Record{{ID: "i1", Class: "Note"}}, nil))

	ids, err := b.IDsOfClass(ctx, []types.ClassID{"Item"})
	require.NoError(t, err)
	assert.Empty(t, ids)
	ids, err = b.IDsOfClass(ctx, []types.ClassID{"Note"})
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"i1", "i2"}, ids)
}

func TestPutDeleted(t *testing.T) {
	ctx := context.Background()
	b := inMemory(t)
	require.NoError(t, b.Put(ctx, records(), nil))
	require.NoError(t, b.Put(ctx, nil, []types.ID{"i2", "never-stored"}))

	_, err := b.Load(ctx, "i2")
	assert.ErrorIs(t, err, types.ErrNotFound)
	ids, err := b.IDsOfClass(ctx, []types.ClassID{"Note"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPutRejectsEmptyID(t *testing.T) {
	b := inMemory(t)
	err := b.Put(context.Background(), []types.Record{{Class: "Item"}}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidField)
}

func TestLifecycle(t *testing.T) {
	b := NewBackend(WithInMemory())
	ctx := context.Background()

	_, err := b.Load(ctx, "x")
	assert.ErrorIs(t, err, types.ErrBackendDetached)

	require.NoError(t, b.Attach(config("")))
	assert.ErrorIs(t, b.Attach(config("")), types.ErrAlreadyAttached)
	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach())

	assert.ErrorIs(t, b.Put(ctx, nil, nil), types.ErrBackendDetached)
	_, err = b.IDsOfClass(ctx, nil)
	assert.ErrorIs(t, err, types.ErrBackendDetached)
}

func TestPersistsAcrossAttach(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b := NewBackend()
	require.NoError(t, b.Attach(config(dir)))
	require.NoError(t, b.Put(ctx, records(), nil))
	require.NoError(t, b.Detach())

	c := NewBackend()
	require.NoError(t, c.Attach(config(dir)))
	defer c.Detach()
	rec, err := c.Load(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "i1 i2", rec.Fields[0].Payload)
}

func TestPutSplitsLargeSaves(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(WithInMemory(), WithMemTableSize(1<<20))
	require.NoError(t, b.Attach(config("")))
	t.Cleanup(func() { _ = b.Detach() })

	const n = 3000
	recs := make([]types.Record, n)
	for i := range recs {
		recs[i] = types.Record{ID: types.ID(fmt.Sprintf("i%05d", i)), Class: "Item", Fields: []types.FieldRecord{
			{Field: "note", Tag: "str", Payload: fmt.Sprintf("item number %d", i)},
		}}
	}
	require.NoError(t, b.Put(ctx, recs, nil))

	ids, err := b.IDsOfClass(ctx, []types.ClassID{"Item"})
	require.NoError(t, err)
	assert.Len(t, ids, n)
	last, err := b.Load(ctx, recs[n-1].ID)
	require.NoError(t, err)
	assert.Equal(t, recs[n-1], last)

	deleted := make([]types.ID, n)
	for i, rec := range recs {
		deleted[i] = rec.ID
	}
	require.NoError(t, b.Put(ctx, nil, deleted))
	ids, err = b.IDsOfClass(ctx, []types.ClassID{"Item"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}
