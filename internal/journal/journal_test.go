package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/thicket/internal/graph"
	"github.com/mesh-intelligence/thicket/internal/schema"
	"github.com/mesh-intelligence/thicket/pkg/types"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return t0 }
}

func TestBeginCommit(t *testing.T) {
	j := New(WithClock(fixedClock()))

	require.NoError(t, j.Begin("rename"))
	assert.ErrorIs(t, j.Begin("again"), ErrTaskOpen)

	j.ObjectCreated("a", "Item")
	j.ObjectModified("a", 1001, "", "hello")

	task, err := j.Commit()
	require.NoError(t, err)
	assert.Equal(t, "rename", task.Label)
	require.Len(t, task.Changes, 2)
	assert.Equal(t, ActionCreate, task.Changes[0].Action)
	assert.Equal(t, ActionModify, task.Changes[1].Action)
	assert.Equal(t, "hello", task.Changes[1].After)
	assert.Equal(t, 1, j.Len())

	_, err = j.Commit()
	assert.ErrorIs(t, err, ErrNoTask)
}

func TestEmptyTaskDiscarded(t *testing.T) {
	j := New()
	require.NoError(t, j.Begin("noop"))
	_, err := j.Commit()
	require.NoError(t, err)
	assert.Zero(t, j.Len())
}

func TestAbort(t *testing.T) {
	j := New()
	require.NoError(t, j.Begin("x"))
	j.ObjectCreated("a", "Item")
	j.Abort()
	assert.Zero(t, j.Len())
	require.NoError(t, j.Begin("y"))
}

func TestAutoCommitOutsideTask(t *testing.T) {
	j := New()
	j.ObjectCreated("a", "Item")
	j.ObjectDeleted(types.Snapshot{ID: "a", Class: "Item"})

	tasks := j.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, ActionDelete, tasks[1].Changes[0].Action)
	assert.Equal(t, types.ClassID("Item"), tasks[1].Changes[0].Class)

	j.Reset()
	assert.Zero(t, j.Len())
}

func TestRecordsEngineEvents(t *testing.T) {
	reg := schema.NewRegistry()
	require.NoError(t, reg.DefineClass(schema.ClassDef{
		Name:   "Leaf",
		Fields: []schema.FieldDef{{Name: "name", Kind: types.KindString}},
	}))
	require.NoError(t, reg.DefineClass(schema.ClassDef{
		Name: "Tree",
		Fields: []schema.FieldDef{
			{Name: "leaves", Kind: types.KindOwningSequence, Signature: "Leaf"},
		},
	}))
	name, ok := reg.FieldByName("Leaf", "name")
	require.True(t, ok)
	leaves, ok := reg.FieldByName("Tree", "leaves")
	require.True(t, ok)

	j := New()
	store := graph.NewStore(reg, graph.WithRecorder(j))

	require.NoError(t, j.Begin("plant"))
	tree, err := store.Create("Tree")
	require.NoError(t, err)
	leaf, err := store.CreateOwned("Leaf", tree, leaves, 0)
	require.NoError(t, err)
	require.NoError(t, leaf.SetValue(name, "oak"))
	_, err = j.Commit()
	require.NoError(t, err)

	require.NoError(t, j.Begin("prune"))
	require.NoError(t, store.Delete(leaf))
	_, err = j.Commit()
	require.NoError(t, err)

	tasks := j.Tasks()
	require.Len(t, tasks, 2)

	actions := func(task Task) []Action {
		var out []Action
		for _, c := range task.Changes {
			out = append(out, c.Action)
		}
		return out
	}
	assert.Contains(t, actions(tasks[0]), ActionCreate)
	assert.Contains(t, actions(tasks[0]), ActionReparent)
	assert.Contains(t, actions(tasks[0]), ActionModify)
	assert.Contains(t, actions(tasks[1]), ActionDelete)

	for _, c := range tasks[1].Changes {
		if c.Action == ActionDelete {
			require.NotNil(t, c.Snapshot)
			assert.Equal(t, "oak", c.Snapshot.Values[name])
		}
	}
}

func TestWriteAndAppendJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	j := New(WithClock(fixedClock()))
	require.NoError(t, j.Begin("first"))
	j.ObjectCreated("a", "Item")
	_, err := j.Commit()
	require.NoError(t, err)
	require.NoError(t, j.WriteJSONL(path))

	k := New()
	require.NoError(t, k.Begin("second"))
	k.ObjectModified("a", 7, int64(1), int64(2))
	_, err = k.Commit()
	require.NoError(t, err)
	require.NoError(t, k.AppendJSONL(path))

	tasks, err := ReadJSONL(path)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "first", tasks[0].Label)
	assert.Equal(t, "second", tasks[1].Label)
	assert.Equal(t, types.ID("a"), tasks[1].Changes[0].Object)
	assert.Equal(t, float64(2), tasks[1].Changes[0].After)
}

func TestReadJSONLMissing(t *testing.T) {
	tasks, err := ReadJSONL(filepath.Join(t.TempDir(), "none.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
