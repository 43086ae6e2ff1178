package types

import "fmt"

// FieldKind is the closed set of field shapes the engine dispatches on.
type FieldKind int

// Field kinds. Value kinds come first, then owning, then reference kinds.
const (
	KindInvalid FieldKind = iota
	KindBoolean
	KindInteger
	KindTime
	KindGUID
	KindBinary
	KindString
	KindOwningAtomic
	KindOwningCollection
	KindOwningSequence
	KindReferenceAtomic
	KindReferenceCollection
	KindReferenceSequence
)

var kindNames = map[FieldKind]string{
	KindBoolean:             "boolean",
	KindInteger:             "integer",
	KindTime:                "time",
	KindGUID:                "guid",
	KindBinary:              "binary",
	KindString:              "string",
	KindOwningAtomic:        "owning_atomic",
	KindOwningCollection:    "owning_collection",
	KindOwningSequence:      "owning_sequence",
	KindReferenceAtomic:     "reference_atomic",
	KindReferenceCollection: "reference_collection",
	KindReferenceSequence:   "reference_sequence",
}

func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a schema kind name to its FieldKind.
func ParseKind(name string) (FieldKind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("%w: unknown field kind %q", ErrInvalidField, name)
}

// IsValue reports whether the kind holds a scalar value.
func (k FieldKind) IsValue() bool { return k >= KindBoolean && k <= KindString }

// IsObject reports whether the kind holds entity ids.
func (k FieldKind) IsObject() bool { return k >= KindOwningAtomic && k <= KindReferenceSequence }

// IsOwning reports whether the kind owns the entities it holds.
func (k FieldKind) IsOwning() bool { return k >= KindOwningAtomic && k <= KindOwningSequence }

// IsReference reports whether the kind holds non-owning associations.
func (k FieldKind) IsReference() bool {
	return k >= KindReferenceAtomic && k <= KindReferenceSequence
}

// IsAtomic reports whether the kind holds at most one entity.
func (k FieldKind) IsAtomic() bool { return k == KindOwningAtomic || k == KindReferenceAtomic }

// IsVector reports whether the kind holds a collection or a sequence.
func (k FieldKind) IsVector() bool {
	return k == KindOwningCollection || k == KindOwningSequence ||
		k == KindReferenceCollection || k == KindReferenceSequence
}

// IsSequence reports whether the kind is ordered.
func (k FieldKind) IsSequence() bool { return k == KindOwningSequence || k == KindReferenceSequence }

// IsCollection reports whether the kind is an unordered set.
func (k FieldKind) IsCollection() bool {
	return k == KindOwningCollection || k == KindReferenceCollection
}

// KindFilter selects field kinds in catalog queries.
type KindFilter uint32

// Bit returns the filter bit for a single kind.
func (k FieldKind) Bit() KindFilter { return 1 << uint(k) }

// Predefined filters.
const (
	FilterValue = KindFilter(1<<KindBoolean | 1<<KindInteger | 1<<KindTime |
		1<<KindGUID | 1<<KindBinary | 1<<KindString)
	FilterOwning    = KindFilter(1<<KindOwningAtomic | 1<<KindOwningCollection | 1<<KindOwningSequence)
	FilterReference = KindFilter(1<<KindReferenceAtomic | 1<<KindReferenceCollection | 1<<KindReferenceSequence)
	FilterObject    = FilterOwning | FilterReference
	FilterAll       = FilterValue | FilterObject
)

// Match reports whether the filter admits kind k.
func (f KindFilter) Match(k FieldKind) bool { return f&k.Bit() != 0 }
