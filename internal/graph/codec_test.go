package graph

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

func TestCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		kind  types.FieldKind
		value any
		tag   string
	}{
		{types.KindBoolean, true, TagBool},
		{types.KindInteger, int64(-42), TagInt},
		{types.KindTime, time.Date(2023, 7, 1, 10, 30, 0, 123456789, time.UTC), TagTime},
		{types.KindGUID, uuid.MustParse("0190c2a4-8b1e-7c3d-9f00-1234567890ab"), TagGUID},
		{types.KindBinary, []byte{0, 1, 254, 255}, TagBinary},
		{types.KindString, "line one\nline two", TagString},
		{types.KindReferenceAtomic, types.ID("0190c2a4-0000-7000-8000-000000000001"), TagObject},
		{types.KindOwningAtomic, types.ID("0190c2a4-0000-7000-8000-000000000002"), TagObject},
		{types.KindReferenceSequence, []types.ID{"a", "b", "a"}, TagVector},
		{types.KindOwningCollection, []types.ID{"c"}, TagVector},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			rec, ok, err := EncodeValue(tt.kind, tt.value)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.tag, rec.Tag)

			got, err := DecodeValue(tt.kind, rec)
			require.NoError(t, err)
			assert.True(t, types.EqualValues(tt.value, got), "got %#v", got)
		})
	}
}

func TestCodec_DefaultsAreNotEmitted(t *testing.T) {
	for _, kind := range []types.FieldKind{
		types.KindBoolean, types.KindInteger, types.KindTime, types.KindGUID,
		types.KindBinary, types.KindString, types.KindReferenceAtomic, types.KindOwningSequence,
	} {
		_, ok, err := EncodeValue(kind, types.DefaultValue(kind))
		require.NoError(t, err)
		assert.False(t, ok, kind.String())
	}
}

func TestCodec_Mismatches(t *testing.T) {
	_, _, err := EncodeValue(types.KindInteger, "7")
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	_, err = DecodeValue(types.KindInteger, types.FieldRecord{Tag: TagString, Payload: "7"})
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	bad := []types.FieldRecord{
		{Tag: TagBool, Payload: "maybe"},
		{Tag: TagInt, Payload: "x"},
		{Tag: TagTime, Payload: "yesterday"},
		{Tag: TagGUID, Payload: "nope"},
		{Tag: TagBinary, Payload: "!!!"},
	}
	kinds := []types.FieldKind{types.KindBoolean, types.KindInteger, types.KindTime, types.KindGUID, types.KindBinary}
	for i, rec := range bad {
		_, err := DecodeValue(kinds[i], rec)
		assert.ErrorIs(t, err, types.ErrTypeMismatch, rec.Tag)
	}
}
