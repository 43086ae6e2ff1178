// Package journal records engine change notifications as a unit-of-work log.
//
// A Journal implements types.Recorder. Changes reported between Begin and
// Commit are grouped into one Task; changes reported outside a task are
// committed immediately as a task of their own.
package journal

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/mesh-intelligence/thicket/internal/jsonl"
	"github.com/mesh-intelligence/thicket/pkg/types"
)

// Journal errors.
var (
	ErrTaskOpen = errors.New("journal: task already open")
	ErrNoTask   = errors.New("journal: no open task")
)

// Action names the kind of change a Change records.
type Action string

// Change actions mirror the Recorder callbacks.
const (
	ActionCreate   Action = "create"
	ActionModify   Action = "modify"
	ActionReparent Action = "reparent"
	ActionDelete   Action = "delete"
)

// Change is one reversible engine event.
type Change struct {
	Action   Action          `json:"action"`
	Object   types.ID        `json:"object_id"`
	Class    types.ClassID   `json:"class_id,omitempty"`
	Field    types.FieldID   `json:"field,omitempty"`
	Before   any             `json:"before,omitempty"`
	After    any             `json:"after,omitempty"`
	Previous *types.OwnerRef `json:"previous_owner,omitempty"`
	Current  *types.OwnerRef `json:"current_owner,omitempty"`
	Snapshot *types.Snapshot `json:"snapshot,omitempty"`
}

// Task groups the changes of one user-level operation.
type Task struct {
	Label     string    `json:"label"`
	Started   time.Time `json:"started"`
	Committed time.Time `json:"committed"`
	Changes   []Change  `json:"changes"`
}

// Journal is a types.Recorder that keeps an in-memory history of tasks.
// It is safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	now     func() time.Time
	open    *Task
	history []Task
}

var _ types.Recorder = (*Journal)(nil)

// Option configures a Journal.
type Option func(*Journal)

// WithClock sets the time source used to stamp tasks.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// New returns an empty journal.
func New(opts ...Option) *Journal {
	j := &Journal{now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Begin opens a task. Changes reported until Commit join it.
func (j *Journal) Begin(label string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.open != nil {
		return ErrTaskOpen
	}
	j.open = &Task{Label: label, Started: j.now().UTC()}
	return nil
}

// Commit closes the open task and appends it to the history. An empty task
// is discarded. It returns the committed task.
func (j *Journal) Commit() (Task, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.open == nil {
		return Task{}, ErrNoTask
	}
	task := *j.open
	j.open = nil
	task.Committed = j.now().UTC()
	if len(task.Changes) > 0 {
		j.history = append(j.history, task)
	}
	return task, nil
}

// Abort discards the open task and its changes.
func (j *Journal) Abort() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.open = nil
}

// Tasks returns a copy of the committed history, oldest first.
func (j *Journal) Tasks() []Task {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.history)
}

// Len returns the number of committed tasks.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.history)
}

// Reset drops the history. An open task is kept.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.history = nil
}

func (j *Journal) record(c Change) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.open != nil {
		j.open.Changes = append(j.open.Changes, c)
		return
	}
	now := j.now().UTC()
	j.history = append(j.history, Task{Started: now, Committed: now, Changes: []Change{c}})
}

// ObjectCreated implements types.Recorder.
func (j *Journal) ObjectCreated(id types.ID, class types.ClassID) {
	j.record(Change{Action: ActionCreate, Object: id, Class: class})
}

// ObjectModified implements types.Recorder.
func (j *Journal) ObjectModified(id types.ID, field types.FieldID, oldValue, newValue any) {
	j.record(Change{Action: ActionModify, Object: id, Field: field, Before: oldValue, After: newValue})
}

// OwnershipChanged implements types.Recorder.
func (j *Journal) OwnershipChanged(id types.ID, previous, current types.OwnerRef) {
	j.record(Change{Action: ActionReparent, Object: id, Previous: &previous, Current: &current})
}

// ObjectDeleted implements types.Recorder.
func (j *Journal) ObjectDeleted(snapshot types.Snapshot) {
	j.record(Change{Action: ActionDelete, Object: snapshot.ID, Class: snapshot.Class, Snapshot: &snapshot})
}

// WriteJSONL writes the committed history to path, one task per line,
// replacing the file atomically.
func (j *Journal) WriteJSONL(path string) error {
	return jsonl.WriteAll(path, j.Tasks())
}

// AppendJSONL adds the committed history after the tasks already in path.
func (j *Journal) AppendJSONL(path string) error {
	existing, err := ReadJSONL(path)
	if err != nil {
		return err
	}
	return jsonl.WriteAll(path, append(existing, j.Tasks()...))
}

// ReadJSONL loads tasks written by WriteJSONL. A missing file yields no
// tasks. Decoded values lose their Go types: ids become strings and
// integers become float64.
func ReadJSONL(path string) ([]Task, error) {
	return jsonl.ReadAll[Task](path)
}
