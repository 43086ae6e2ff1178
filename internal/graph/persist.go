package graph

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

// Record returns the persisted surrogate of o: its class, owner id, and
// every non-default static and custom field.
func (s *Store) Record(o *Object) (types.Record, error) {
	if err := o.check(); err != nil {
		return types.Record{}, err
	}
	rec := types.Record{ID: o.id, Class: o.class, Owner: o.OwnerID()}
	for _, info := range s.objectFields(o, types.FilterAll) {
		fr, ok, err := EncodeValue(info.Kind, o.raw(info))
		if err != nil {
			return rec, fmt.Errorf("%s.%s: %w", o.class, info.Name, err)
		}
		if ok {
			fr.Field, fr.Custom = info.Name, info.Custom
			rec.Fields = append(rec.Fields, fr)
		}
	}
	return rec, nil
}

// Save writes every resident object to sink together with the ids deleted
// since the previous successful save.
func (s *Store) Save(ctx context.Context, sink types.Sink) error {
	if err := s.usable(); err != nil {
		return err
	}
	s.mu.RLock()
	objs := make([]*Object, 0, len(s.objects))
	for _, o := range s.objects {
		objs = append(objs, o)
	}
	deleted := slices.Clone(s.unsaved)
	s.mu.RUnlock()
	slices.SortFunc(objs, func(a, b *Object) int { return cmp.Compare(a.handle, b.handle) })

	records := make([]types.Record, 0, len(objs))
	for _, o := range objs {
		rec, err := s.Record(o)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := sink.Put(ctx, records, deleted); err != nil {
		return fmt.Errorf("saving graph: %w", err)
	}

	s.mu.Lock()
	s.unsaved = s.unsaved[len(deleted):]
	s.mu.Unlock()
	s.log.Debug("saved graph", "objects", len(records), "deleted", len(deleted))
	return nil
}

// materialize makes a loaded record resident. The owner is kept as an id
// placeholder whose field is resolved on first use, and the object's
// outgoing references join the index. The object is published only once
// its values are in place, so concurrent readers never see it half built.
func (s *Store) materialize(rec types.Record) (*Object, error) {
	if !s.catalog.HasClass(rec.Class) {
		return nil, fmt.Errorf("%w: %s for %s", types.ErrUnknownClass, rec.Class, rec.ID)
	}
	type decoded struct {
		info types.FieldInfo
		v    any
	}
	values := make([]decoded, 0, len(rec.Fields))
	for _, fr := range rec.Fields {
		f, ok := s.catalog.FieldByName(rec.Class, fr.Field)
		if !ok {
			s.log.Warn("skipping unknown field", "class", rec.Class, "field", fr.Field, "id", rec.ID)
			continue
		}
		info, _ := s.catalog.Field(f)
		v, err := DecodeValue(info.Kind, fr)
		if err != nil {
			return nil, fmt.Errorf("loading %s.%s of %s: %w", rec.Class, fr.Field, rec.ID, err)
		}
		values = append(values, decoded{info: info, v: v})
	}

	o := s.newObject(rec.ID, rec.Class, false)
	o.owner = types.OwnerRef{Owner: rec.Owner, Ordinal: types.NoOrdinal}
	for _, d := range values {
		o.put(d.info, d.v)
	}
	s.linkOutgoing(o)
	s.publish(o)
	return o, nil
}
