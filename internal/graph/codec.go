package graph

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

// Persisted value tags.
const (
	TagBool   = "bool"
	TagInt    = "int"
	TagTime   = "time"
	TagGUID   = "guid"
	TagBinary = "bin"
	TagString = "str"
	TagObject = "obj"
	TagVector = "objs"
)

// TagFor returns the persisted tag used for values of kind.
func TagFor(kind types.FieldKind) string {
	switch kind {
	case types.KindBoolean:
		return TagBool
	case types.KindInteger:
		return TagInt
	case types.KindTime:
		return TagTime
	case types.KindGUID:
		return TagGUID
	case types.KindBinary:
		return TagBinary
	case types.KindString:
		return TagString
	case types.KindOwningAtomic, types.KindReferenceAtomic:
		return TagObject
	default:
		return TagVector
	}
}

// EncodeValue renders v as a tagged textual surrogate. ok is false when v is
// the kind default, which is never persisted. The Field name is left for
// the caller to fill in.
func EncodeValue(kind types.FieldKind, v any) (rec types.FieldRecord, ok bool, err error) {
	if types.IsDefault(kind, v) {
		return rec, false, nil
	}
	rec.Tag = TagFor(kind)
	if rec.Tag != tagOfValue(v) {
		return rec, false, fmt.Errorf("%w: %T for %s field", types.ErrTypeMismatch, v, kind)
	}
	switch val := v.(type) {
	case bool:
		rec.Payload = strconv.FormatBool(val)
	case int64:
		rec.Payload = strconv.FormatInt(val, 10)
	case time.Time:
		rec.Payload = val.UTC().Format(time.RFC3339Nano)
	case uuid.UUID:
		rec.Payload = val.String()
	case []byte:
		rec.Payload = base64.StdEncoding.EncodeToString(val)
	case string:
		rec.Payload = val
	case types.ID:
		rec.Payload = string(val)
	case []types.ID:
		parts := make([]string, len(val))
		for i, id := range val {
			parts[i] = string(id)
		}
		rec.Payload = strings.Join(parts, " ")
	}
	return rec, true, nil
}

func tagOfValue(v any) string {
	switch v.(type) {
	case bool:
		return TagBool
	case int64:
		return TagInt
	case time.Time:
		return TagTime
	case uuid.UUID:
		return TagGUID
	case []byte:
		return TagBinary
	case string:
		return TagString
	case types.ID:
		return TagObject
	case []types.ID:
		return TagVector
	}
	return ""
}

// DecodeValue parses a surrogate produced by EncodeValue for a field of
// kind. A tag that does not belong to kind fails with ErrTypeMismatch.
func DecodeValue(kind types.FieldKind, rec types.FieldRecord) (any, error) {
	if want := TagFor(kind); rec.Tag != want {
		return nil, fmt.Errorf("%w: tag %q for %s field", types.ErrTypeMismatch, rec.Tag, kind)
	}
	switch rec.Tag {
	case TagBool:
		b, err := strconv.ParseBool(rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrTypeMismatch, err)
		}
		return b, nil
	case TagInt:
		n, err := strconv.ParseInt(rec.Payload, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrTypeMismatch, err)
		}
		return n, nil
	case TagTime:
		t, err := time.Parse(time.RFC3339Nano, rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrTypeMismatch, err)
		}
		return t.UTC(), nil
	case TagGUID:
		g, err := uuid.Parse(rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrTypeMismatch, err)
		}
		return g, nil
	case TagBinary:
		b, err := base64.StdEncoding.DecodeString(rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrTypeMismatch, err)
		}
		return b, nil
	case TagString:
		return rec.Payload, nil
	case TagObject:
		return types.ID(rec.Payload), nil
	default:
		fields := strings.Fields(rec.Payload)
		ids := make([]types.ID, len(fields))
		for i, f := range fields {
			ids[i] = types.ID(f)
		}
		return ids, nil
	}
}

// decodeInto stores a decoded surrogate on o without notifying the
// recorder, keeping the reference index in step for reference fields and
// the owner links in step for owning fields.
func (s *Store) decodeInto(o *Object, info types.FieldInfo, rec types.FieldRecord) error {
	v, err := DecodeValue(info.Kind, rec)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", o.class, info.Name, err)
	}
	if info.Kind.IsOwning() {
		if err := s.claimDecoded(o, info, idsOf(v)); err != nil {
			return err
		}
	}
	if info.Kind.IsReference() {
		for _, id := range idsOf(o.raw(info)) {
			s.refs.remove(id, o.id, info.ID)
		}
		for _, id := range idsOf(v) {
			s.refs.add(id, o.id, info.ID)
		}
	}
	o.put(info, v)
	return nil
}
