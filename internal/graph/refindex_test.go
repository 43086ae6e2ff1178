package graph

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

func TestEnsureComplete_LoadsReferrersLazily(t *testing.T) {
	f := newFixture(t)
	target := f.create(t, "Item")
	r1 := f.create(t, "Item")
	r2 := f.create(t, "Note")
	folder := f.create(t, "Folder")
	require.NoError(t, r1.Append(f.related, target))
	require.NoError(t, r2.SetAtomic(f.next, target))
	require.NoError(t, folder.Append(f.tags, target))

	g, backend := f.reopen(t)
	tgt, err := g.store.Resolve(target.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, g.store.Len(), "only the target is resident")

	scans := testutil.ToFloat64(backrefScans)
	refs, err := g.store.IncomingRefs(tgt)
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.BackRef{
		{Source: r1.ID(), Field: g.related},
		{Source: r2.ID(), Field: g.next},
		{Source: folder.ID(), Field: g.tags},
	}, refs)
	assert.Greater(t, testutil.ToFloat64(backrefScans), scans)

	// A second query reuses the materialized populations.
	loads := backend.loadCount()
	scans = testutil.ToFloat64(backrefScans)
	_, err = g.store.ReferringObjects(tgt)
	require.NoError(t, err)
	assert.Equal(t, loads, backend.loadCount())
	assert.Equal(t, scans, testutil.ToFloat64(backrefScans))
}

func TestEnsureComplete_SingleField(t *testing.T) {
	f := newFixture(t)
	target := f.create(t, "Item")
	f.create(t, "Item")
	folder := f.create(t, "Folder")
	require.NoError(t, folder.Append(f.tags, target))

	g, _ := f.reopen(t)
	tgt, err := g.store.Resolve(target.ID())
	require.NoError(t, err)

	require.NoError(t, g.store.EnsureComplete(tgt, g.next))
	assert.Equal(t, 2, g.store.Len(), "completing Item.next loads every Item")

	require.NoError(t, g.store.EnsureComplete(tgt, g.tags))
	assert.Equal(t, 3, g.store.Len())
}

func TestReferringObjects_Distinct(t *testing.T) {
	f := newFixture(t)
	target := f.create(t, "Item")
	r := f.create(t, "Item")
	require.NoError(t, r.Append(f.related, target))
	require.NoError(t, r.Append(f.chain, target))
	require.NoError(t, r.Append(f.chain, target))

	objs, err := f.store.ReferringObjects(target)
	require.NoError(t, err)
	assert.Equal(t, []*Object{r}, objs)

	refs, err := f.store.IncomingRefsNotFrom(target, r)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestReplaceReferences(t *testing.T) {
	f := newFixture(t)
	old := f.create(t, "Item")
	repl := f.create(t, "Item")
	a := f.create(t, "Item")
	b := f.create(t, "Item")
	require.NoError(t, a.SetAtomic(f.next, old))
	require.NoError(t, b.Append(f.related, old))
	require.NoError(t, b.Append(f.related, repl))
	require.NoError(t, b.Append(f.chain, old))
	require.NoError(t, b.Append(f.chain, old))

	require.NoError(t, f.store.ReplaceReferences(old, repl, false))

	next, _ := a.Atomic(f.next)
	assert.Same(t, repl, next)
	rel, _ := b.Vector(f.related)
	assert.Equal(t, []types.ID{repl.ID()}, rel.IDs(), "collections stay duplicate free")
	chain, _ := b.Vector(f.chain)
	assert.Equal(t, []types.ID{repl.ID(), repl.ID()}, chain.IDs())

	refs, _ := f.store.IncomingRefs(old)
	assert.Empty(t, refs)
	refs, _ = f.store.IncomingRefs(repl)
	assert.Len(t, refs, 3)
}

func TestReplaceReferences_StrictAndBestEffort(t *testing.T) {
	f := newFixture(t)
	old := f.create(t, "Item")
	repl := f.create(t, "Note")
	folder := f.create(t, "Folder")
	other := f.create(t, "Folder")
	a := f.create(t, "Item")
	require.NoError(t, a.SetAtomic(f.next, old))
	require.NoError(t, folder.Append(f.tags, old))
	require.NoError(t, other.SetAtomic(f.pinned, folder))

	// Item fields accept a Note; swapping a Folder for an Item is rejected.
	err := f.store.ReplaceReferences(folder, a, false)
	assert.ErrorIs(t, err, types.ErrReferenceRejected)
	pinned, _ := other.Atomic(f.pinned)
	assert.Same(t, folder, pinned, "strict mode changes nothing on rejection")

	require.NoError(t, f.store.ReplaceReferences(folder, a, true))
	pinned, _ = other.Atomic(f.pinned)
	assert.Same(t, folder, pinned, "best effort skips the offending referrer")

	require.NoError(t, f.store.ReplaceReferences(old, repl, false))
	next, _ := a.Atomic(f.next)
	assert.Same(t, repl, next)
	tags, _ := folder.Vector(f.tags)
	assert.Equal(t, []types.ID{repl.ID()}, tags.IDs())
}

func TestCanDelete(t *testing.T) {
	f := newFixture(t)
	folder := f.create(t, "Folder")
	x := f.child(t, folder, f.children)
	y := f.child(t, folder, f.children)
	outsider := f.create(t, "Item")

	require.NoError(t, x.Append(f.related, y))
	ok, err := f.store.CanDelete(folder)
	require.NoError(t, err)
	assert.True(t, ok, "references inside the subtree do not block")

	require.NoError(t, outsider.SetAtomic(f.next, y))
	ok, err = f.store.CanDelete(folder)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.store.CanDelete(folder, outsider)
	require.NoError(t, err)
	assert.True(t, ok)
}
