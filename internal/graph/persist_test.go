package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

func TestSave_RecordsAndDeletes(t *testing.T) {
	f := newFixture(t)
	folder := f.create(t, "Folder")
	x := f.child(t, folder, f.children)
	gone := f.create(t, "Item")
	require.NoError(t, folder.SetValue(f.title, "Inbox"))
	require.NoError(t, f.store.Custom().Set(x, f.score, 3, true))

	backend := newMemBackend()
	require.NoError(t, f.store.Save(context.Background(), backend))
	assert.Len(t, backend.records, 3)

	rec := backend.records[x.ID()]
	assert.Equal(t, folder.ID(), rec.Owner)
	assert.Equal(t, []types.FieldRecord{{Field: "score", Tag: TagInt, Payload: "3", Custom: true}}, rec.Fields)
	frec := backend.records[folder.ID()]
	assert.Contains(t, frec.Fields, types.FieldRecord{Field: "children", Tag: TagVector, Payload: string(x.ID())})

	require.NoError(t, f.store.Delete(gone))
	require.NoError(t, f.store.Save(context.Background(), backend))
	assert.Len(t, backend.records, 2)
	assert.NotContains(t, backend.records, gone.ID())
}

func TestOpen_FluffsOnDemand(t *testing.T) {
	f := newFixture(t)
	folder := f.create(t, "Folder")
	x := f.child(t, folder, f.children)
	y := f.child(t, folder, f.children)
	require.NoError(t, x.Append(f.related, y))
	require.NoError(t, x.SetValue(f.note, "persisted"))

	before := testutil.ToFloat64(fluffs)
	g, backend := f.reopen(t)
	assert.Zero(t, g.store.Len())

	gx, err := g.store.Resolve(x.ID())
	require.NoError(t, err)
	assert.False(t, gx.fresh)
	note, _ := gx.Text(g.note)
	assert.Equal(t, "persisted", note)
	assert.Equal(t, 1, backend.loadCount())

	owner, err := gx.Owner()
	require.NoError(t, err)
	assert.Equal(t, folder.ID(), owner.ID())
	ord, err := gx.Ordinal()
	require.NoError(t, err)
	assert.Equal(t, 0, ord)

	rel, _ := gx.Vector(g.related)
	objs, err := rel.Objects()
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, y.ID(), objs[0].ID())
	assert.Equal(t, before+3, testutil.ToFloat64(fluffs))

	// Deleting a loaded subtree reaches non-resident children too.
	require.NoError(t, g.store.Delete(owner))
	assert.Zero(t, g.store.Len())
	require.NoError(t, g.store.Save(context.Background(), backend))
	assert.Empty(t, backend.records)
}

func TestOpen_UnknownClassAndField(t *testing.T) {
	f := newFixture(t)
	backend := newMemBackend()
	s := Open(f.reg, backend)

	backend.records["w"] = types.Record{ID: "w", Class: "Widget"}
	_, err := s.Resolve("w")
	assert.ErrorIs(t, err, types.ErrUnknownClass)

	backend.records["i"] = types.Record{ID: "i", Class: "Item", Fields: []types.FieldRecord{
		{Field: "removed_in_schema_v2", Tag: TagString, Payload: "x"},
		{Field: "note", Tag: TagString, Payload: "ok"},
	}}
	o, err := s.Resolve("i")
	require.NoError(t, err)
	note, _ := o.Text(f.note)
	assert.Equal(t, "ok", note)

	backend.records["bad"] = types.Record{ID: "bad", Class: "Item", Fields: []types.FieldRecord{
		{Field: "count", Tag: TagInt, Payload: "many"},
	}}
	_, err = s.Resolve("bad")
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
	_, err = s.Resolve("bad")
	assert.ErrorIs(t, err, types.ErrTypeMismatch, "failed loads leave nothing resident")

	_, err = s.Resolve("missing")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestOpen_ConcurrentReadersSeeLoadedValues(t *testing.T) {
	f := newFixture(t)
	folder := f.create(t, "Folder")
	var ids []types.ID
	for i := range 5 {
		x := f.child(t, folder, f.children)
		require.NoError(t, x.SetValue(f.note, "note"))
		require.NoError(t, x.SetValue(f.count, i+1))
		require.NoError(t, f.store.Custom().Set(x, f.label, "custom", true))
		ids = append(ids, x.ID())
	}
	g, _ := f.reopen(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				for i, id := range ids {
					o, err := g.store.Resolve(id)
					if err != nil {
						errs <- err
						return
					}
					if note, _ := o.Text(g.note); note != "note" {
						errs <- errors.New("note not loaded: " + note)
						return
					}
					if n, _ := o.Int(g.count); n != int64(i+1) {
						errs <- errors.New("count not loaded")
						return
					}
					if v, _ := o.Value(g.label); v != "custom" {
						errs <- errors.New("custom label not loaded")
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, len(ids), g.store.Len())
}

func TestDelete_CascadeSizeCountsLoadedChildren(t *testing.T) {
	f := newFixture(t)
	folder := f.create(t, "Folder")
	for range 3 {
		f.child(t, folder, f.children)
	}
	g, _ := f.reopen(t)
	loaded, err := g.store.Resolve(folder.ID())
	require.NoError(t, err)

	sample := func() (uint64, float64) {
		var m dto.Metric
		require.NoError(t, cascadeSize.Write(&m))
		return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
	}
	count, sum := sample()
	require.NoError(t, g.store.Delete(loaded))

	gotCount, gotSum := sample()
	assert.Equal(t, count+1, gotCount)
	assert.Equal(t, sum+4, gotSum)
}
