package graph

import (
	"fmt"
	"maps"
	"sync"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

// CustomStore holds the values of custom fields, keyed by object and field.
// It is owned by exactly one Store and lives as long as it does. Absent
// entries mean the field holds its default.
type CustomStore struct {
	store  *Store
	mu     sync.RWMutex
	values map[types.ID]map[types.FieldID]any
}

func newCustomStore(s *Store) *CustomStore {
	return &CustomStore{
		store:  s,
		values: make(map[types.ID]map[types.FieldID]any),
	}
}

func (c *CustomStore) raw(id types.ID, f types.FieldID) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[id][f]
}

func (c *CustomStore) put(id types.ID, f types.FieldID, kind types.FieldKind, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if types.IsDefault(kind, v) {
		if m, ok := c.values[id]; ok {
			delete(m, f)
			if len(m) == 0 {
				delete(c.values, id)
			}
		}
		return
	}
	m, ok := c.values[id]
	if !ok {
		m = make(map[types.FieldID]any)
		c.values[id] = m
	}
	m[f] = v
}

func (c *CustomStore) drop(id types.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, id)
}

func (c *CustomStore) customField(o *Object, f types.FieldID) (types.FieldInfo, error) {
	info, err := o.field(f, nil)
	if err != nil {
		return info, err
	}
	if !info.Custom {
		return info, fmt.Errorf("%w: %s.%s is not a custom field", types.ErrInvalidField, o.class, info.Name)
	}
	return info, nil
}

// Get returns the value of custom field f on o. Absent values come back as
// the kind default; atomic object fields yield a types.ID and vector fields
// a *Vector bound to (o, f), so callers never see a missing value.
func (c *CustomStore) Get(o *Object, f types.FieldID) (any, error) {
	if err := o.check(); err != nil {
		return nil, err
	}
	info, err := c.customField(o, f)
	if err != nil {
		return nil, err
	}
	if info.Kind.IsVector() {
		return &Vector{obj: o, info: info}, nil
	}
	return types.CloneValue(o.value(info)), nil
}

// Set assigns custom field f on o after checking v against the field kind.
// Value fields take their scalar type; atomic object fields take a *Object,
// a types.ID, or nil. Vector fields are changed through the *Vector from
// Get. Reference fields keep the reference index symmetric and owning
// fields delete the object they previously held. notify controls whether
// the change recorder hears about the change to o and the ownership change
// of the new target; deleting a displaced occupant and detaching the target
// from a previous owner are always reported.
func (c *CustomStore) Set(o *Object, f types.FieldID, v any, notify bool) error {
	if err := o.checkLive(); err != nil {
		return err
	}
	info, err := c.customField(o, f)
	if err != nil {
		return err
	}
	s := c.store
	switch {
	case info.Kind.IsValue():
		return s.setValue(o, info, v, notify)
	case info.Kind.IsAtomic():
		target, err := c.objectArg(v)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", o.class, info.Name, err)
		}
		return s.setAtomic(o, info, target, notify)
	default:
		return fmt.Errorf("%w: %s.%s is a vector; use the Vector from Get", types.ErrTypeMismatch, o.class, info.Name)
	}
}

func (c *CustomStore) objectArg(v any) (*Object, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *Object:
		return val, nil
	case types.ID:
		if val == "" {
			return nil, nil
		}
		return c.store.Resolve(val)
	}
	return nil, fmt.Errorf("%w: %T for object field", types.ErrTypeMismatch, v)
}

// Values returns copies of every non-default custom value of o.
func (c *CustomStore) Values(o *Object) map[types.FieldID]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := maps.Clone(c.values[o.id])
	if out == nil {
		return map[types.FieldID]any{}
	}
	for k, v := range out {
		out[k] = types.CloneValue(v)
	}
	return out
}

// Encode returns the persisted surrogates of o's non-default custom values
// in field order.
func (c *CustomStore) Encode(o *Object) ([]types.FieldRecord, error) {
	if err := o.check(); err != nil {
		return nil, err
	}
	var out []types.FieldRecord
	for _, info := range c.store.objectFields(o, types.FilterAll) {
		if !info.Custom {
			continue
		}
		rec, ok, err := EncodeValue(info.Kind, c.raw(o.id, info.ID))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", o.class, info.Name, err)
		}
		if ok {
			rec.Field, rec.Custom = info.Name, true
			out = append(out, rec)
		}
	}
	return out, nil
}

// Decode loads custom values from persisted surrogates without notifying
// the recorder. Object-valued entries are stored as ids and indexed; the
// objects they name are fluffed when accessed. Owning entries take over the
// owner link of resident objects and fail with ErrInvalidOwnership when one
// is already owned elsewhere. Records naming unknown fields are skipped.
func (c *CustomStore) Decode(o *Object, records []types.FieldRecord) error {
	if err := o.check(); err != nil {
		return err
	}
	for _, rec := range records {
		f, ok := c.store.catalog.FieldByName(o.class, rec.Field)
		if !ok {
			c.store.log.Warn("skipping unknown custom field", "class", o.class, "field", rec.Field)
			continue
		}
		info, err := c.customField(o, f)
		if err != nil {
			return err
		}
		if err := c.store.decodeInto(o, info, rec); err != nil {
			return err
		}
	}
	return nil
}
