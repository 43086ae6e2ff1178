package types

import (
	"github.com/google/uuid"
)

// ID is the durable, globally unique identifier of an entity. It holds the
// canonical string form of a UUID v7 and is stable across save and reload.
type ID string

// NewID returns a fresh UUID v7 identifier, falling back to a v4 UUID when
// the v7 generator fails.
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return ID(uuid.New().String())
	}
	return ID(id.String())
}

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool { return id == "" }

// String returns the id text.
func (id ID) String() string { return string(id) }

// Handle is the session-local integer surrogate of a resident entity. Handles
// are allocated monotonically and retired on delete; a retired handle is
// never reissued within the same store.
type Handle int64

// ClassID names an entity class in the schema catalog.
type ClassID string

// FieldID identifies a declared field. Static fields are numbered
// classNumber*1000+n, custom fields classNumber*1000+500+n.
type FieldID int32

// NoOrdinal is the ordinal recorded for atomic and collection ownership,
// where position carries no meaning.
const NoOrdinal = -1

// OwnerRef locates an entity inside its owner. Field is zero while the
// owning field is still an unresolved placeholder (for example right after
// a load, where only the owner id is persisted).
type OwnerRef struct {
	Owner   ID      `json:"owner,omitempty"`
	Field   FieldID `json:"field,omitempty"`
	Ordinal int     `json:"ordinal"`
}

// IsZero reports whether the reference names no owner.
func (r OwnerRef) IsZero() bool { return r.Owner == "" }

// State is the lifecycle state of an entity.
type State int

// Entity lifecycle states. StateDeleting is held for the whole duration of a
// cascading delete so reentrant deletes become a simple state read.
const (
	StateLive State = iota
	StateDeleting
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateDeleting:
		return "deleting"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Snapshot is the pre-deletion image of an entity handed to the change
// recorder so that an undo log can recreate it. Values holds deep copies of
// every static and custom field that was not at its default.
type Snapshot struct {
	ID     ID              `json:"id"`
	Class  ClassID         `json:"class"`
	Owner  OwnerRef        `json:"owner"`
	Values map[FieldID]any `json:"values"`
}

// BackRef is one incoming reference: Source holds a reference to the target
// entity in Field.
type BackRef struct {
	Source ID      `json:"source"`
	Field  FieldID `json:"field"`
}
