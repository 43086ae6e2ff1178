package types

import "context"

// FieldRecord is the persisted surrogate of one non-default field value:
// the field name, a type tag, and a textual payload. Object-valued fields
// carry id surrogates, never nested records.
type FieldRecord struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Payload string `json:"payload"`
	Custom  bool   `json:"custom,omitempty"`
}

// Record is the persisted surrogate of one entity. Only the owner id is
// kept; the owning field is resolved lazily after load.
type Record struct {
	ID     ID            `json:"object_id"`
	Class  ClassID       `json:"class_id"`
	Owner  ID            `json:"owner_id,omitempty"`
	Fields []FieldRecord `json:"fields,omitempty"`
}

// Source supplies records for fluffing placeholders into live objects.
type Source interface {
	// Load returns the record for id, or ErrNotFound.
	Load(ctx context.Context, id ID) (Record, error)

	// IDsOfClass lists the ids of every stored record whose class is one
	// of classes.
	IDsOfClass(ctx context.Context, classes []ClassID) ([]ID, error)
}

// Sink accepts saved records. Put upserts records and removes deleted ids
// in one step.
type Sink interface {
	Put(ctx context.Context, records []Record, deleted []ID) error
}

// Backend is a persistent store that can act as both source and sink.
// Attach opens it with the given configuration; Detach releases it.
type Backend interface {
	Source
	Sink
	Attach(config Config) error
	Detach() error
}
