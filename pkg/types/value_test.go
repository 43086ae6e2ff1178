package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValue(t *testing.T) {
	tests := []struct {
		kind FieldKind
		want any
	}{
		{KindBoolean, false},
		{KindInteger, int64(0)},
		{KindTime, time.Time{}},
		{KindGUID, uuid.Nil},
		{KindBinary, []byte{}},
		{KindString, ""},
		{KindOwningAtomic, ID("")},
		{KindReferenceAtomic, ID("")},
		{KindOwningSequence, []ID{}},
		{KindReferenceCollection, []ID{}},
		{KindInvalid, nil},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got := DefaultValue(tt.kind)
			assert.Equal(t, tt.want, got)
			if tt.kind != KindInvalid {
				assert.True(t, IsDefault(tt.kind, got))
			}
		})
	}
}

func TestIsDefault_NonEmpty(t *testing.T) {
	assert.False(t, IsDefault(KindBoolean, true))
	assert.False(t, IsDefault(KindInteger, int64(3)))
	assert.False(t, IsDefault(KindTime, time.Now()))
	assert.False(t, IsDefault(KindGUID, uuid.New()))
	assert.False(t, IsDefault(KindBinary, []byte{0}))
	assert.False(t, IsDefault(KindString, "x"))
	assert.False(t, IsDefault(KindReferenceAtomic, ID("a")))
	assert.False(t, IsDefault(KindReferenceSequence, []ID{"a"}))
	assert.True(t, IsDefault(KindString, nil))
}

func TestCoerceValue(t *testing.T) {
	v, err := CoerceValue(KindInteger, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	loc := time.FixedZone("x", 3600)
	v, err = CoerceValue(KindTime, time.Date(2024, 1, 2, 3, 4, 5, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, v.(time.Time).Location())

	_, err = CoerceValue(KindString, 12)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = CoerceValue(KindOwningAtomic, ID("a"))
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestCloneValue_Independent(t *testing.T) {
	ids := []ID{"a", "b"}
	c := CloneValue(ids).([]ID)
	c[0] = "z"
	assert.Equal(t, ID("a"), ids[0])

	b := []byte{1, 2}
	cb := CloneValue(b).([]byte)
	cb[0] = 9
	assert.Equal(t, byte(1), b[0])
}

func TestEqualValues(t *testing.T) {
	now := time.Now()
	assert.True(t, EqualValues(now, now.UTC()))
	assert.True(t, EqualValues([]byte{1}, []byte{1}))
	assert.False(t, EqualValues([]ID{"a"}, []ID{"b"}))
	assert.True(t, EqualValues("x", "x"))
}
