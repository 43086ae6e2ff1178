package graph

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

// OwnerID returns the id of the owning object, or "" when o is ownerless.
func (o *Object) OwnerID() types.ID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.owner.Owner
}

// Owner returns the owning object, fluffing it if needed, or nil.
func (o *Object) Owner() (*Object, error) {
	if err := o.check(); err != nil {
		return nil, err
	}
	id := o.OwnerID()
	if id == "" {
		return nil, nil
	}
	return o.store.Resolve(id)
}

// OwningField returns the field of the owner holding o, or 0 when o has no
// owner. The field is resolved on first use; with fast owning lookup
// enabled the resolution may assume the longest owning vector without
// verifying it.
func (o *Object) OwningField() (types.FieldID, error) {
	return o.owningField(false)
}

// OwningFieldExhaustive is OwningField with every owning field of the
// owner verified, for callers that cannot accept the fast-path guess.
func (o *Object) OwningFieldExhaustive() (types.FieldID, error) {
	return o.owningField(true)
}

func (o *Object) owningField(exhaustive bool) (types.FieldID, error) {
	if err := o.check(); err != nil {
		return 0, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.owner.Owner == "" {
		return 0, nil
	}
	if o.owner.Field != 0 && !exhaustive {
		return o.owner.Field, nil
	}
	owner, err := o.store.Resolve(o.owner.Owner)
	if err != nil {
		return 0, err
	}
	f, err := o.store.locateOwningField(owner, o.id, o.store.fast && !exhaustive)
	if err != nil {
		return 0, err
	}
	o.owner.Field = f
	return f, nil
}

// locateOwningField finds the owning field of owner that holds id. Atomic
// fields are checked first. With fast set, vectors are checked shortest
// first and the longest one is assumed without scanning it.
func (s *Store) locateOwningField(owner *Object, id types.ID, fast bool) (types.FieldID, error) {
	type candidate struct {
		field types.FieldID
		ids   []types.ID
	}
	var vectors []candidate
	for _, info := range s.objectFields(owner, types.FilterOwning) {
		v := owner.raw(info)
		if info.Kind.IsAtomic() {
			if v == id {
				return info.ID, nil
			}
			continue
		}
		if ids := idsOf(v); len(ids) > 0 {
			vectors = append(vectors, candidate{field: info.ID, ids: ids})
		}
	}
	if fast && len(vectors) > 0 {
		slices.SortStableFunc(vectors, func(a, b candidate) int { return cmp.Compare(len(a.ids), len(b.ids)) })
		for _, c := range vectors[:len(vectors)-1] {
			if slices.Contains(c.ids, id) {
				return c.field, nil
			}
		}
		return vectors[len(vectors)-1].field, nil
	}
	for _, c := range vectors {
		if slices.Contains(c.ids, id) {
			return c.field, nil
		}
	}
	return 0, fmt.Errorf("%w: %s does not hold %s", types.ErrInvalidOwnership, owner, id)
}

// Ordinal returns the position of o in its owning sequence, or
// types.NoOrdinal for atomic and collection ownership and ownerless objects.
func (o *Object) Ordinal() (int, error) {
	f, err := o.OwningField()
	if err != nil || f == 0 {
		return types.NoOrdinal, err
	}
	if !o.store.catalog.FieldKind(f).IsSequence() {
		return types.NoOrdinal, nil
	}
	owner, err := o.Owner()
	if err != nil {
		return types.NoOrdinal, err
	}
	info, _ := o.store.catalog.Field(f)
	return slices.Index(idsOf(owner.raw(info)), o.id), nil
}

// ownerRef returns the full owner triple of o.
func (o *Object) ownerRef() (types.OwnerRef, error) {
	ref := types.OwnerRef{Owner: o.OwnerID(), Ordinal: types.NoOrdinal}
	if ref.Owner == "" {
		return ref, nil
	}
	var err error
	if ref.Field, err = o.OwningField(); err != nil {
		return ref, err
	}
	ref.Ordinal, err = o.Ordinal()
	return ref, err
}

func (o *Object) setOwnerRef(owner types.ID, field types.FieldID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.owner = types.OwnerRef{Owner: owner, Field: field, Ordinal: types.NoOrdinal}
}

// IsOwnedBy reports whether candidate owns o directly or transitively.
func (o *Object) IsOwnedBy(candidate *Object) (bool, error) {
	if err := o.check(); err != nil {
		return false, err
	}
	if candidate == nil {
		return false, nil
	}
	for id := o.OwnerID(); id != ""; {
		if id == candidate.id {
			return true, nil
		}
		next, err := o.store.Resolve(id)
		if err != nil {
			return false, err
		}
		id = next.OwnerID()
	}
	return false, nil
}

// SetOwner moves o into field of owner at ordinal (types.NoOrdinal, or any
// out of range ordinal, appends to a sequence). The old owner loses o before
// the new owner takes it. Placing o into an occupied owning atomic field
// deletes the previous occupant.
func (s *Store) SetOwner(o, owner *Object, field types.FieldID, ordinal int) error {
	return s.setOwner(o, owner, field, ordinal, true)
}

// setOwner is SetOwner with notify controlling the events for owner's field
// and o's ownership change. Detaching o from a previous owner and deleting a
// displaced occupant are changes to other objects and are always reported.
func (s *Store) setOwner(o, owner *Object, field types.FieldID, ordinal int, notify bool) error {
	if err := o.checkLive(); err != nil {
		return err
	}
	if err := owner.checkLive(); err != nil {
		return err
	}
	if o.store != s || owner.store != s {
		return fmt.Errorf("%w: objects belong to different stores", types.ErrInvalidOwnership)
	}
	info, err := owner.field(field, types.FieldKind.IsOwning)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidOwnership, err)
	}
	if !s.catalog.Accepts(field, o.class) {
		return fmt.Errorf("%w: %s.%s cannot own %s", types.ErrInvalidOwnership, owner.class, info.Name, o.class)
	}
	if owner == o {
		return fmt.Errorf("%w: %s cannot own itself", types.ErrInvalidOwnership, o)
	}
	cycle, err := owner.IsOwnedBy(o)
	if err != nil {
		return err
	}
	if cycle {
		return fmt.Errorf("%w: %s is owned by %s", types.ErrInvalidOwnership, owner, o)
	}

	prev, err := o.ownerRef()
	if err != nil {
		return err
	}
	if prev.Owner == owner.id && prev.Field == field {
		if info.Kind.IsSequence() && ordinal != types.NoOrdinal && ordinal != prev.Ordinal {
			n := len(idsOf(owner.raw(info)))
			return s.moveInSequence(owner, info, prev.Ordinal, min(ordinal, n-1), notify)
		}
		return nil
	}

	if prev.Owner != "" {
		oldOwner, err := s.Resolve(prev.Owner)
		if err != nil {
			return err
		}
		oldInfo, _ := s.catalog.Field(prev.Field)
		s.detach(oldOwner, oldInfo, o.id)
	}

	if info.Kind.IsAtomic() {
		if occupant, _ := owner.raw(info).(types.ID); occupant != "" {
			victim, err := s.Resolve(occupant)
			if err != nil {
				return err
			}
			if err := s.deleteObject(victim, causeReplaced); err != nil {
				return err
			}
		}
		s.putObjectField(owner, info, o.id, notify)
	} else {
		ids := slices.Clone(idsOf(owner.raw(info)))
		if ordinal < 0 || ordinal > len(ids) {
			ordinal = len(ids)
		}
		s.putObjectField(owner, info, slices.Insert(ids, ordinal, o.id), notify)
	}
	o.setOwnerRef(owner.id, field)

	if !notify {
		return nil
	}
	cur, err := o.ownerRef()
	if err != nil {
		return err
	}
	s.recorder.OwnershipChanged(o.id, prev, cur)
	return nil
}

// claimDecoded points the owner links of the resident objects in ids at
// (o, field) ahead of a decode into o's owning field. Resident objects held
// by another owner or another field of o are rejected before anything
// changes. Resident objects the field held before and no longer lists
// become ownerless. Non-resident ids take their owner from their own record
// when fluffed.
func (s *Store) claimDecoded(o *Object, info types.FieldInfo, ids []types.ID) error {
	held := idsOf(o.raw(info))
	var claimed []*Object
	for _, id := range ids {
		if id == o.id {
			return fmt.Errorf("%w: %s cannot own itself", types.ErrInvalidOwnership, o)
		}
		s.mu.RLock()
		gone := s.retired[id]
		s.mu.RUnlock()
		if gone {
			return fmt.Errorf("%w: %s", types.ErrDeletedObject, id)
		}
		child, ok := s.lookup(id)
		if !ok {
			continue
		}
		if !s.catalog.Accepts(info.ID, child.class) {
			return fmt.Errorf("%w: %s.%s cannot own %s", types.ErrInvalidOwnership, o.class, info.Name, child)
		}
		switch owner := child.OwnerID(); {
		case owner == o.id && slices.Contains(held, id):
		case owner == "":
			cycle, err := o.IsOwnedBy(child)
			if err != nil {
				return err
			}
			if cycle {
				return fmt.Errorf("%w: %s is owned by %s", types.ErrInvalidOwnership, o, child)
			}
		default:
			return fmt.Errorf("%w: %s is already owned by %s", types.ErrInvalidOwnership, child, owner)
		}
		claimed = append(claimed, child)
	}

	for _, id := range held {
		if slices.Contains(ids, id) {
			continue
		}
		if child, ok := s.lookup(id); ok && child.OwnerID() == o.id {
			child.setOwnerRef("", 0)
		}
	}
	for _, child := range claimed {
		child.setOwnerRef(o.id, info.ID)
	}
	return nil
}

// detach removes id from owner's owning field without deleting it.
func (s *Store) detach(owner *Object, info types.FieldInfo, id types.ID) {
	switch v := owner.raw(info).(type) {
	case types.ID:
		if v == id {
			s.putObjectField(owner, info, types.ID(""), true)
		}
	case []types.ID:
		if i := slices.Index(v, id); i >= 0 {
			s.putObjectField(owner, info, slices.Delete(slices.Clone(v), i, i+1), true)
		}
	}
}

// putObjectField stores an object-valued field and, with notify set,
// reports the change. Reference index maintenance is the caller's job.
func (s *Store) putObjectField(o *Object, info types.FieldInfo, v any, notify bool) {
	old := types.CloneValue(o.value(info))
	o.put(info, v)
	if notify {
		s.recorder.ObjectModified(o.id, info.ID, old, types.CloneValue(v))
	}
}

// moveInSequence reorders a sequence element without touching ownership
// or the reference index.
func (s *Store) moveInSequence(o *Object, info types.FieldInfo, from, to int, notify bool) error {
	ids := slices.Clone(idsOf(o.raw(info)))
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) {
		return fmt.Errorf("%w: move %d->%d out of range for %s.%s", types.ErrInvalidField, from, to, o.class, info.Name)
	}
	if from == to {
		return nil
	}
	id := ids[from]
	ids = slices.Delete(ids, from, from+1)
	ids = slices.Insert(ids, to, id)
	s.putObjectField(o, info, ids, notify)
	return nil
}
