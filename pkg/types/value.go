package types

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// DefaultValue returns the empty value of kind: false, 0, the zero time,
// uuid.Nil, an empty byte slice, "", an empty id, or an empty id slice.
// It returns nil for KindInvalid.
func DefaultValue(kind FieldKind) any {
	switch kind {
	case KindBoolean:
		return false
	case KindInteger:
		return int64(0)
	case KindTime:
		return time.Time{}
	case KindGUID:
		return uuid.Nil
	case KindBinary:
		return []byte{}
	case KindString:
		return ""
	case KindOwningAtomic, KindReferenceAtomic:
		return ID("")
	case KindOwningCollection, KindOwningSequence, KindReferenceCollection, KindReferenceSequence:
		return []ID{}
	default:
		return nil
	}
}

// IsDefault reports whether v is the empty value of kind. A nil v is
// always default.
func IsDefault(kind FieldKind, v any) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case bool:
		return !val
	case int64:
		return val == 0
	case time.Time:
		return val.IsZero()
	case uuid.UUID:
		return val == uuid.Nil
	case []byte:
		return len(val) == 0
	case string:
		return val == ""
	case ID:
		return val == ""
	case []ID:
		return len(val) == 0
	}
	return false
}

// CoerceValue checks v against a value kind and returns it in canonical
// form: int and int32 widen to int64 and times are converted to UTC.
// It returns ErrTypeMismatch when v cannot be stored in a field of kind.
func CoerceValue(kind FieldKind, v any) (any, error) {
	switch kind {
	case KindBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindInteger:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		}
	case KindTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
	case KindGUID:
		if g, ok := v.(uuid.UUID); ok {
			return g, nil
		}
	case KindBinary:
		if b, ok := v.([]byte); ok {
			return bytes.Clone(b), nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	default:
		return nil, fmt.Errorf("%w: %s is not a value kind", ErrInvalidField, kind)
	}
	return nil, fmt.Errorf("%w: %T for %s field", ErrTypeMismatch, v, kind)
}

// CloneValue returns a copy of v that shares no mutable state with it.
func CloneValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return bytes.Clone(val)
	case []ID:
		return slices.Clone(val)
	}
	return v
}

// EqualValues compares two field values of the same kind.
func EqualValues(a, b any) bool {
	switch av := a.(type) {
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case []ID:
		bv, ok := b.([]ID)
		return ok && slices.Equal(av, bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}
	return a == b
}
