package graph

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

// Delete removes o and everything it owns. A delete reached again while o
// is already being deleted is a no-op; deleting a retired object fails with
// ErrDeletedObject.
func (s *Store) Delete(o *Object) error {
	if err := o.check(); err != nil {
		return err
	}
	before := s.removedCount()
	if err := s.deleteObject(o, causeExplicit); err != nil {
		return err
	}
	cascadeSize.Observe(float64(s.removedCount() - before))
	return nil
}

// DeleteAll deletes every object in objs, skipping objects already removed
// by an earlier cascade in the same call.
func (s *Store) DeleteAll(objs ...*Object) error {
	var errs []error
	for _, o := range objs {
		if o != nil && o.state == types.StateDeleted {
			continue
		}
		if err := s.Delete(o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deleteObject runs the delete sequence: pre-delete hook, removal from the
// owner, incoming reference cleanup, outgoing reference removal, cascade
// into owned children, recorder notification, and handle retirement.
func (s *Store) deleteObject(o *Object, cause string) error {
	switch o.state {
	case types.StateDeleting:
		return nil
	case types.StateDeleted:
		return fmt.Errorf("%w: %s", types.ErrDeletedObject, o)
	}
	if err := s.usable(); err != nil {
		return err
	}

	o.state = types.StateDeleting
	snap, err := s.snapshot(o)
	if err != nil {
		o.state = types.StateLive
		return err
	}
	if hook := s.rulesFor(o.class).PreDelete; hook != nil {
		if err := hook(s, o); err != nil {
			o.state = types.StateLive
			return fmt.Errorf("pre-delete %s: %w", o, err)
		}
	}
	s.log.Debug("deleting object", "id", o.id, "class", o.class, "cause", cause)

	if snap.Owner.Owner != "" {
		owner, err := s.Resolve(snap.Owner.Owner)
		if err != nil {
			return err
		}
		if owner.IsLive() {
			info, _ := s.catalog.Field(snap.Owner.Field)
			s.detach(owner, info, o.id)
		}
	}

	if err := s.clearIncoming(o); err != nil {
		return err
	}
	s.unlinkOutgoing(o)

	for _, info := range s.objectFields(o, types.FilterOwning) {
		for _, id := range idsOf(o.raw(info)) {
			child, err := s.Resolve(id)
			if errors.Is(err, types.ErrNotFound) {
				s.log.Warn("owned object missing", "owner", o.id, "child", id)
				continue
			}
			if err != nil {
				return err
			}
			if err := s.deleteObject(child, causeCascade); err != nil {
				return err
			}
		}
	}

	s.custom.drop(o.id)
	s.refs.drop(o.id)
	s.recorder.ObjectDeleted(snap)
	s.retire(o)
	objectsDeleted.WithLabelValues(cause).Inc()
	return nil
}

// clearIncoming removes every reference to o, applying each referrer's
// cleanup policy.
func (s *Store) clearIncoming(o *Object) error {
	refs, err := s.IncomingRefs(o)
	if err != nil {
		return err
	}
	for _, r := range refs {
		src, ok, err := s.liveReferrer(r.Source)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if s.rulesFor(src.class).cleanup(r.Field) == CleanupDeleteReferrer {
			if err := s.deleteObject(src, causeReferrer); err != nil {
				return err
			}
			continue
		}
		info, _ := s.catalog.Field(r.Field)
		s.dropReference(src, info, o.id)
	}
	return nil
}

// liveReferrer resolves a referrer found in the index. Referrers removed by
// an earlier cascade in the same operation report ok=false.
func (s *Store) liveReferrer(id types.ID) (*Object, bool, error) {
	src, err := s.Resolve(id)
	if errors.Is(err, types.ErrDeletedObject) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return src, src.IsLive(), nil
}

// dropReference removes every occurrence of target from src's reference
// field.
func (s *Store) dropReference(src *Object, info types.FieldInfo, target types.ID) {
	switch v := src.raw(info).(type) {
	case types.ID:
		if v != target {
			return
		}
		s.refs.remove(target, src.id, info.ID)
		s.putObjectField(src, info, types.ID(""), true)
	case []types.ID:
		kept := make([]types.ID, 0, len(v))
		for _, id := range v {
			if id == target {
				s.refs.remove(target, src.id, info.ID)
				continue
			}
			kept = append(kept, id)
		}
		if len(kept) != len(v) {
			s.putObjectField(src, info, kept, true)
		}
	}
}

// snapshot captures the owner triple and every non-default field of o.
func (s *Store) snapshot(o *Object) (types.Snapshot, error) {
	owner, err := o.ownerRef()
	if err != nil {
		return types.Snapshot{}, err
	}
	snap := types.Snapshot{
		ID:     o.id,
		Class:  o.class,
		Owner:  owner,
		Values: make(map[types.FieldID]any),
	}
	for _, info := range s.objectFields(o, types.FilterAll) {
		if v := o.raw(info); !types.IsDefault(info.Kind, v) {
			snap.Values[info.ID] = types.CloneValue(v)
		}
	}
	return snap, nil
}
