package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldKindPredicates(t *testing.T) {
	tests := []struct {
		kind                                             FieldKind
		value, object, owning, reference, atomic, vector bool
		sequence                                         bool
	}{
		{KindBoolean, true, false, false, false, false, false, false},
		{KindString, true, false, false, false, false, false, false},
		{KindOwningAtomic, false, true, true, false, true, false, false},
		{KindOwningCollection, false, true, true, false, false, true, false},
		{KindOwningSequence, false, true, true, false, false, true, true},
		{KindReferenceAtomic, false, true, false, true, true, false, false},
		{KindReferenceCollection, false, true, false, true, false, true, false},
		{KindReferenceSequence, false, true, false, true, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.value, tt.kind.IsValue(), "IsValue")
			assert.Equal(t, tt.object, tt.kind.IsObject(), "IsObject")
			assert.Equal(t, tt.owning, tt.kind.IsOwning(), "IsOwning")
			assert.Equal(t, tt.reference, tt.kind.IsReference(), "IsReference")
			assert.Equal(t, tt.atomic, tt.kind.IsAtomic(), "IsAtomic")
			assert.Equal(t, tt.vector, tt.kind.IsVector(), "IsVector")
			assert.Equal(t, tt.sequence, tt.kind.IsSequence(), "IsSequence")
		})
	}
}

func TestParseKind(t *testing.T) {
	for k, name := range kindNames {
		got, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("tree")
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestKindFilter(t *testing.T) {
	assert.True(t, FilterValue.Match(KindGUID))
	assert.False(t, FilterValue.Match(KindOwningAtomic))
	assert.True(t, FilterOwning.Match(KindOwningSequence))
	assert.False(t, FilterOwning.Match(KindReferenceSequence))
	assert.True(t, FilterReference.Match(KindReferenceAtomic))
	assert.True(t, FilterAll.Match(KindBinary))
	assert.False(t, FilterAll.Match(KindInvalid))
	assert.True(t, KindReferenceCollection.Bit().Match(KindReferenceCollection))
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a.String(), 36)
	assert.False(t, a.IsZero())
	assert.True(t, ID("").IsZero())
}
