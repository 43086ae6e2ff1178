package graph

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

// Object is one resident entity. Field values are held by id; object-valued
// fields never hold pointers, so a retired object cannot be reached through
// a stale link.
type Object struct {
	store  *Store
	id     types.ID
	handle types.Handle
	class  types.ClassID
	state  types.State
	fresh  bool

	values map[types.FieldID]any // static fields; absent means default

	mu    sync.Mutex // guards owner resolution
	owner types.OwnerRef
}

// ID returns the persistent identifier of o.
func (o *Object) ID() types.ID { return o.id }

// Handle returns the session-local handle of o.
func (o *Object) Handle() types.Handle { return o.handle }

// Class returns the concrete class of o.
func (o *Object) Class() types.ClassID { return o.class }

// State returns the lifecycle state of o.
func (o *Object) State() types.State { return o.state }

// Store returns the store o belongs to.
func (o *Object) Store() *Store { return o.store }

// IsLive reports whether o is neither being deleted nor deleted.
func (o *Object) IsLive() bool { return o.state == types.StateLive }

func (o *Object) String() string { return fmt.Sprintf("%s(%s)", o.class, o.id) }

// check fails unless o is initialized, its store is open, and o has not
// been deleted.
func (o *Object) check() error {
	if o == nil || o.store == nil || o.id == "" {
		return types.ErrUninitializedObject
	}
	if err := o.store.usable(); err != nil {
		return err
	}
	if o.state == types.StateDeleted {
		return fmt.Errorf("%w: %s", types.ErrDeletedObject, o)
	}
	return nil
}

// checkLive is check plus a refusal to mutate objects being deleted.
func (o *Object) checkLive() error {
	if err := o.check(); err != nil {
		return err
	}
	if o.state != types.StateLive {
		return fmt.Errorf("%w: %s is being deleted", types.ErrDeletedObject, o)
	}
	return nil
}

// field returns the declaration of f after checking that o's class has it
// and that its kind satisfies want.
func (o *Object) field(f types.FieldID, want func(types.FieldKind) bool) (types.FieldInfo, error) {
	info, ok := o.store.catalog.Field(f)
	if !ok || !o.store.catalog.IsA(o.class, info.Class) {
		return info, fmt.Errorf("%w: %d not declared on %s", types.ErrInvalidField, f, o.class)
	}
	if want != nil && !want(info.Kind) {
		return info, fmt.Errorf("%w: %s.%s is %s", types.ErrInvalidField, o.class, info.Name, info.Kind)
	}
	return info, nil
}

// raw returns the stored value of f or nil, routing custom fields to the
// overlay.
func (o *Object) raw(info types.FieldInfo) any {
	if info.Custom {
		return o.store.custom.raw(o.id, info.ID)
	}
	return o.values[info.ID]
}

// put stores v for f, dropping default values.
func (o *Object) put(info types.FieldInfo, v any) {
	if info.Custom {
		o.store.custom.put(o.id, info.ID, info.Kind, v)
		return
	}
	if types.IsDefault(info.Kind, v) {
		delete(o.values, info.ID)
		return
	}
	o.values[info.ID] = v
}

// value returns the value of f, or the kind default.
func (o *Object) value(info types.FieldInfo) any {
	if v := o.raw(info); v != nil {
		return v
	}
	return types.DefaultValue(info.Kind)
}

func (o *Object) valueOf(f types.FieldID, kind types.FieldKind) (any, error) {
	if err := o.check(); err != nil {
		return nil, err
	}
	info, err := o.field(f, func(k types.FieldKind) bool { return k == kind })
	if err != nil {
		return nil, err
	}
	return types.CloneValue(o.value(info)), nil
}

// Bool returns the boolean field f.
func (o *Object) Bool(f types.FieldID) (bool, error) {
	v, err := o.valueOf(f, types.KindBoolean)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Int returns the integer field f.
func (o *Object) Int(f types.FieldID) (int64, error) {
	v, err := o.valueOf(f, types.KindInteger)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Time returns the time field f.
func (o *Object) Time(f types.FieldID) (time.Time, error) {
	v, err := o.valueOf(f, types.KindTime)
	if err != nil {
		return time.Time{}, err
	}
	return v.(time.Time), nil
}

// GUID returns the guid field f.
func (o *Object) GUID(f types.FieldID) (uuid.UUID, error) {
	v, err := o.valueOf(f, types.KindGUID)
	if err != nil {
		return uuid.Nil, err
	}
	return v.(uuid.UUID), nil
}

// Binary returns a copy of the binary field f.
func (o *Object) Binary(f types.FieldID) ([]byte, error) {
	v, err := o.valueOf(f, types.KindBinary)
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Text returns the text field f.
func (o *Object) Text(f types.FieldID) (string, error) {
	v, err := o.valueOf(f, types.KindString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Value returns any field as its generic representation: scalars for value
// fields, types.ID for atomic object fields, []types.ID for vectors.
func (o *Object) Value(f types.FieldID) (any, error) {
	if err := o.check(); err != nil {
		return nil, err
	}
	info, err := o.field(f, nil)
	if err != nil {
		return nil, err
	}
	return types.CloneValue(o.value(info)), nil
}

// SetValue assigns a value field. The value is checked against the field
// kind and the change is reported to the recorder.
func (o *Object) SetValue(f types.FieldID, v any) error {
	if err := o.checkLive(); err != nil {
		return err
	}
	info, err := o.field(f, types.FieldKind.IsValue)
	if err != nil {
		return err
	}
	return o.store.setValue(o, info, v, true)
}

func (s *Store) setValue(o *Object, info types.FieldInfo, v any, notify bool) error {
	nv, err := types.CoerceValue(info.Kind, v)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", o.class, info.Name, err)
	}
	old := o.value(info)
	if types.EqualValues(old, nv) {
		return nil
	}
	o.put(info, nv)
	if notify {
		s.recorder.ObjectModified(o.id, info.ID, old, types.CloneValue(nv))
	}
	return nil
}
