package graph

import "github.com/mesh-intelligence/thicket/pkg/types"

// CleanupPolicy decides what happens to a referrer when the object it
// references is deleted.
type CleanupPolicy int

const (
	// CleanupRemove drops the dangling reference: an atomic field becomes
	// empty and vectors lose every occurrence of the deleted object.
	CleanupRemove CleanupPolicy = iota
	// CleanupDeleteReferrer deletes the referrer as part of the cascade.
	CleanupDeleteReferrer
)

const defaultMergeSeparator = " "

// Rules carries class-specific behavior. Rules registered for a class also
// apply to classes deriving from it unless they register their own.
type Rules struct {
	// PreDelete runs before any structural change of a delete. An error
	// aborts the delete and leaves the object live.
	PreDelete func(s *Store, o *Object) error

	// RefCleanup maps a reference field declared on this class to the
	// policy applied when the referenced object is deleted.
	RefCleanup     map[types.FieldID]CleanupPolicy
	DefaultCleanup CleanupPolicy

	// MergeSeparator joins differing strings when a merge loses no data.
	// Empty means a single space.
	MergeSeparator string
	// MergeSkip lists fields merge leaves untouched on the target.
	MergeSkip []types.FieldID

	// CreatedField, when set, is stamped with the store clock on Create.
	CreatedField types.FieldID
}

func (r *Rules) cleanup(field types.FieldID) CleanupPolicy {
	if p, ok := r.RefCleanup[field]; ok {
		return p
	}
	return r.DefaultCleanup
}

func (r *Rules) separator() string {
	if r.MergeSeparator == "" {
		return defaultMergeSeparator
	}
	return r.MergeSeparator
}

var noRules = &Rules{}

// rulesFor returns the rules of class, walking up the base chain.
func (s *Store) rulesFor(class types.ClassID) *Rules {
	for c := class; c != ""; {
		if r, ok := s.rules[c]; ok {
			return r
		}
		base, ok := s.catalog.Base(c)
		if !ok {
			break
		}
		c = base
	}
	return noRules
}
