package graph

import (
	"fmt"
	"slices"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

// Atomic returns the object held by an atomic owning or reference field, or
// nil when the field is empty.
func (o *Object) Atomic(f types.FieldID) (*Object, error) {
	if err := o.check(); err != nil {
		return nil, err
	}
	info, err := o.field(f, types.FieldKind.IsAtomic)
	if err != nil {
		return nil, err
	}
	id, _ := o.raw(info).(types.ID)
	if id == "" {
		return nil, nil
	}
	return o.store.Resolve(id)
}

// SetAtomic assigns an atomic object field. For an owning field the target
// is reparented under o and any previous occupant is deleted; nil deletes
// the occupant. For a reference field the reference index is updated.
func (o *Object) SetAtomic(f types.FieldID, target *Object) error {
	if err := o.checkLive(); err != nil {
		return err
	}
	info, err := o.field(f, types.FieldKind.IsAtomic)
	if err != nil {
		return err
	}
	return o.store.setAtomic(o, info, target, true)
}

func (s *Store) setAtomic(o *Object, info types.FieldInfo, target *Object, notify bool) error {
	if target != nil {
		if err := target.checkLive(); err != nil {
			return err
		}
	}
	if info.Kind.IsOwning() {
		if target != nil {
			return s.setOwner(target, o, info.ID, types.NoOrdinal, notify)
		}
		occupant, _ := o.raw(info).(types.ID)
		if occupant == "" {
			return nil
		}
		victim, err := s.Resolve(occupant)
		if err != nil {
			return err
		}
		return s.deleteObject(victim, causeReplaced)
	}

	var nv types.ID
	if target != nil {
		if target.store != s {
			return fmt.Errorf("%w: %s belongs to another store", types.ErrReferenceRejected, target)
		}
		if !s.catalog.Accepts(info.ID, target.class) {
			return fmt.Errorf("%w: %s.%s cannot hold %s", types.ErrReferenceRejected, o.class, info.Name, target)
		}
		nv = target.id
	}
	old, _ := o.raw(info).(types.ID)
	if old == nv {
		return nil
	}
	s.refs.remove(old, o.id, info.ID)
	s.refs.add(nv, o.id, info.ID)
	o.put(info, nv)
	if notify {
		s.recorder.ObjectModified(o.id, info.ID, old, nv)
	}
	return nil
}

// Vector is a live view of one collection or sequence field of an object.
// It stays bound to (object, field) and reads the current contents on every
// call.
type Vector struct {
	obj  *Object
	info types.FieldInfo
}

// Vector returns the view of a collection or sequence field.
func (o *Object) Vector(f types.FieldID) (*Vector, error) {
	if err := o.check(); err != nil {
		return nil, err
	}
	info, err := o.field(f, types.FieldKind.IsVector)
	if err != nil {
		return nil, err
	}
	return &Vector{obj: o, info: info}, nil
}

// Append adds target to the end of vector field f.
func (o *Object) Append(f types.FieldID, target *Object) error {
	v, err := o.Vector(f)
	if err != nil {
		return err
	}
	return v.Append(target)
}

// Insert adds target at index i of vector field f.
func (o *Object) Insert(f types.FieldID, i int, target *Object) error {
	v, err := o.Vector(f)
	if err != nil {
		return err
	}
	return v.Insert(i, target)
}

// Remove takes target out of vector field f. Removing from an owning
// vector deletes the object.
func (o *Object) Remove(f types.FieldID, target *Object) error {
	v, err := o.Vector(f)
	if err != nil {
		return err
	}
	return v.Remove(target)
}

// RemoveAt removes the element at index i of vector field f.
func (o *Object) RemoveAt(f types.FieldID, i int) error {
	v, err := o.Vector(f)
	if err != nil {
		return err
	}
	return v.RemoveAt(i)
}

// Move reorders sequence field f.
func (o *Object) Move(f types.FieldID, from, to int) error {
	v, err := o.Vector(f)
	if err != nil {
		return err
	}
	return v.Move(from, to)
}

// Object returns the object the vector belongs to.
func (v *Vector) Object() *Object { return v.obj }

// Field returns the field id the vector is bound to.
func (v *Vector) Field() types.FieldID { return v.info.ID }

// IDs returns a copy of the current contents.
func (v *Vector) IDs() []types.ID {
	return slices.Clone(idsOf(v.obj.raw(v.info)))
}

// Len returns the number of elements.
func (v *Vector) Len() int { return len(idsOf(v.obj.raw(v.info))) }

// Contains reports whether target is an element.
func (v *Vector) Contains(target *Object) bool {
	return target != nil && slices.Contains(idsOf(v.obj.raw(v.info)), target.id)
}

// At resolves the element at index i.
func (v *Vector) At(i int) (*Object, error) {
	if err := v.obj.check(); err != nil {
		return nil, err
	}
	ids := idsOf(v.obj.raw(v.info))
	if i < 0 || i >= len(ids) {
		return nil, fmt.Errorf("%w: index %d out of range", types.ErrInvalidField, i)
	}
	return v.obj.store.Resolve(ids[i])
}

// Objects resolves every element in order.
func (v *Vector) Objects() ([]*Object, error) {
	if err := v.obj.check(); err != nil {
		return nil, err
	}
	ids := idsOf(v.obj.raw(v.info))
	out := make([]*Object, 0, len(ids))
	for _, id := range ids {
		o, err := v.obj.store.Resolve(id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Append adds target at the end.
func (v *Vector) Append(target *Object) error {
	return v.Insert(types.NoOrdinal, target)
}

// Insert adds target at index i; an out of range index appends. Owning
// vectors reparent target; collections ignore targets already present.
func (v *Vector) Insert(i int, target *Object) error {
	o, s := v.obj, v.obj.store
	if err := o.checkLive(); err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("%w: nil element", types.ErrUninitializedObject)
	}
	if err := target.checkLive(); err != nil {
		return err
	}
	if v.info.Kind.IsOwning() {
		if v.info.Kind.IsCollection() && v.Contains(target) {
			return nil
		}
		return s.SetOwner(target, o, v.info.ID, i)
	}
	if target.store != s {
		return fmt.Errorf("%w: %s belongs to another store", types.ErrReferenceRejected, target)
	}
	if !s.catalog.Accepts(v.info.ID, target.class) {
		return fmt.Errorf("%w: %s.%s cannot hold %s", types.ErrReferenceRejected, o.class, v.info.Name, target)
	}
	ids := v.IDs()
	if v.info.Kind.IsCollection() && slices.Contains(ids, target.id) {
		return nil
	}
	if i < 0 || i > len(ids) {
		i = len(ids)
	}
	s.refs.add(target.id, o.id, v.info.ID)
	s.putObjectField(o, v.info, slices.Insert(ids, i, target.id), true)
	return nil
}

// Remove takes the first occurrence of target out of the vector. In an
// owning vector this deletes target.
func (v *Vector) Remove(target *Object) error {
	if target == nil {
		return fmt.Errorf("%w: nil element", types.ErrUninitializedObject)
	}
	i := slices.Index(idsOf(v.obj.raw(v.info)), target.id)
	if i < 0 {
		return fmt.Errorf("%w: %s not in %s.%s", types.ErrNotFound, target, v.obj.class, v.info.Name)
	}
	return v.RemoveAt(i)
}

// RemoveAt removes the element at index i.
func (v *Vector) RemoveAt(i int) error {
	o, s := v.obj, v.obj.store
	if err := o.checkLive(); err != nil {
		return err
	}
	ids := v.IDs()
	if i < 0 || i >= len(ids) {
		return fmt.Errorf("%w: index %d out of range", types.ErrInvalidField, i)
	}
	if v.info.Kind.IsOwning() {
		child, err := s.Resolve(ids[i])
		if err != nil {
			return err
		}
		return s.deleteObject(child, causeExplicit)
	}
	s.refs.remove(ids[i], o.id, v.info.ID)
	s.putObjectField(o, v.info, slices.Delete(ids, i, i+1), true)
	return nil
}

// Move reorders a sequence. Collections are unordered and reject it.
func (v *Vector) Move(from, to int) error {
	if err := v.obj.checkLive(); err != nil {
		return err
	}
	if !v.info.Kind.IsSequence() {
		return fmt.Errorf("%w: %s.%s is not a sequence", types.ErrInvalidField, v.obj.class, v.info.Name)
	}
	return v.obj.store.moveInSequence(v.obj, v.info, from, to, true)
}
