package graph

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

type completeKey struct {
	class types.ClassID
	field types.FieldID
}

// refIndex maps each target id to the (referrer, field) pairs pointing at
// it. Counts track repeated entries in reference sequences.
type refIndex struct {
	mu       sync.Mutex
	incoming map[types.ID]map[types.BackRef]int
	complete map[completeKey]bool
}

func newRefIndex() *refIndex {
	return &refIndex{
		incoming: make(map[types.ID]map[types.BackRef]int),
		complete: make(map[completeKey]bool),
	}
}

func (x *refIndex) add(target, source types.ID, field types.FieldID) {
	if target == "" {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	set, ok := x.incoming[target]
	if !ok {
		set = make(map[types.BackRef]int)
		x.incoming[target] = set
	}
	set[types.BackRef{Source: source, Field: field}]++
}

func (x *refIndex) remove(target, source types.ID, field types.FieldID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	set, ok := x.incoming[target]
	if !ok {
		return
	}
	ref := types.BackRef{Source: source, Field: field}
	if set[ref] <= 1 {
		delete(set, ref)
	} else {
		set[ref]--
	}
	if len(set) == 0 {
		delete(x.incoming, target)
	}
}

// list returns the distinct back references of target ordered by referrer
// then field.
func (x *refIndex) list(target types.ID) []types.BackRef {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]types.BackRef, 0, len(x.incoming[target]))
	for ref := range x.incoming[target] {
		out = append(out, ref)
	}
	slices.SortFunc(out, func(a, b types.BackRef) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Field, b.Field)
	})
	return out
}

func (x *refIndex) drop(target types.ID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.incoming, target)
}

func (x *refIndex) isComplete(k completeKey) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.complete[k]
}

func (x *refIndex) markComplete(k completeKey) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.complete[k] = true
}

// linkOutgoing indexes every reference o holds. Loaded objects are linked
// as they become resident, so the index is always complete for resident
// referrers.
func (s *Store) linkOutgoing(o *Object) {
	for _, info := range s.objectFields(o, types.FilterReference) {
		for _, id := range idsOf(o.raw(info)) {
			s.refs.add(id, o.id, info.ID)
		}
	}
}

// unlinkOutgoing removes every reference o holds from the index.
func (s *Store) unlinkOutgoing(o *Object) {
	for _, info := range s.objectFields(o, types.FilterReference) {
		for _, id := range idsOf(o.raw(info)) {
			s.refs.remove(id, o.id, info.ID)
		}
	}
}

// objectFields returns the dispatch table entries of o's class matching
// filter, custom fields included.
func (s *Store) objectFields(o *Object, filter types.KindFilter) []types.FieldInfo {
	ids := s.catalog.FieldsOf(o.class, true, filter)
	out := make([]types.FieldInfo, 0, len(ids))
	for _, id := range ids {
		if info, ok := s.catalog.Field(id); ok {
			out = append(out, info)
		}
	}
	return out
}

// idsOf flattens an atomic or vector object value.
func idsOf(v any) []types.ID {
	switch val := v.(type) {
	case types.ID:
		if val == "" {
			return nil
		}
		return []types.ID{val}
	case []types.ID:
		return val
	}
	return nil
}

// EnsureComplete makes sure the back references of o are fully populated
// for fields (every reference field able to hold o when none are given).
// Each (class, field) population is materialized at most once by loading
// every object of the class declaring the field. Objects created in this
// session are exempt: nothing loaded earlier can reference them.
func (s *Store) EnsureComplete(o *Object, fields ...types.FieldID) error {
	if err := o.check(); err != nil {
		return err
	}
	if o.fresh || s.source == nil {
		return nil
	}
	if len(fields) == 0 {
		fields = s.catalog.IncomingFields(o.class, types.FilterReference)
	}
	for _, f := range fields {
		info, ok := s.catalog.Field(f)
		if !ok || !info.Kind.IsReference() || !s.catalog.Accepts(f, o.class) {
			continue
		}
		key := completeKey{class: o.class, field: f}
		if s.refs.isComplete(key) {
			continue
		}
		if _, err := s.AllOfClass(info.Class); err != nil {
			return fmt.Errorf("completing references to %s: %w", o, err)
		}
		s.refs.markComplete(key)
		backrefScans.Inc()
	}
	return nil
}

// IncomingRefs returns every (referrer, field) pair pointing at o.
func (s *Store) IncomingRefs(o *Object) ([]types.BackRef, error) {
	if o != nil && o.state == types.StateDeleted {
		return nil, nil
	}
	if err := s.EnsureComplete(o); err != nil {
		return nil, err
	}
	return s.refs.list(o.id), nil
}

// IncomingRefsFrom returns the back references of o held in field.
func (s *Store) IncomingRefsFrom(o *Object, field types.FieldID) ([]types.BackRef, error) {
	refs, err := s.IncomingRefs(o)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(refs, func(r types.BackRef) bool { return r.Field != field }), nil
}

// IncomingRefsNotFrom returns the back references of o whose referrer is
// not one of excluded.
func (s *Store) IncomingRefsNotFrom(o *Object, excluded ...*Object) ([]types.BackRef, error) {
	refs, err := s.IncomingRefs(o)
	if err != nil {
		return nil, err
	}
	skip := make(map[types.ID]bool, len(excluded))
	for _, e := range excluded {
		if e != nil {
			skip[e.id] = true
		}
	}
	return slices.DeleteFunc(refs, func(r types.BackRef) bool { return skip[r.Source] }), nil
}

// ReferringObjects returns the distinct objects referencing o. A deleted
// object has no referrers.
func (s *Store) ReferringObjects(o *Object) ([]*Object, error) {
	refs, err := s.IncomingRefs(o)
	if err != nil {
		return nil, err
	}
	var out []*Object
	seen := make(map[types.ID]bool)
	for _, r := range refs {
		if seen[r.Source] {
			continue
		}
		seen[r.Source] = true
		src, err := s.Resolve(r.Source)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// CanDelete reports whether objs can be deleted without breaking any
// reference held by an object outside the set and the subtrees it owns.
func (s *Store) CanDelete(objs ...*Object) (bool, error) {
	doomed := make(map[types.ID]*Object)
	for _, o := range objs {
		if err := o.check(); err != nil {
			return false, err
		}
		if err := s.collectSubtree(o, doomed); err != nil {
			return false, err
		}
	}
	for _, o := range doomed {
		refs, err := s.IncomingRefs(o)
		if err != nil {
			return false, err
		}
		for _, r := range refs {
			if _, ok := doomed[r.Source]; !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

// collectSubtree adds o and every object it transitively owns to into.
func (s *Store) collectSubtree(o *Object, into map[types.ID]*Object) error {
	if _, ok := into[o.id]; ok {
		return nil
	}
	into[o.id] = o
	for _, info := range s.objectFields(o, types.FilterOwning) {
		for _, id := range idsOf(o.raw(info)) {
			child, err := s.Resolve(id)
			if err != nil {
				return err
			}
			if err := s.collectSubtree(child, into); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReplaceReferences redirects every reference to old so it points at
// replacement. Unless bestEffort is set, the call fails with
// ErrReferenceRejected before changing anything when some referrer field
// cannot hold replacement; in best-effort mode such referrers are skipped.
func (s *Store) ReplaceReferences(old, replacement *Object, bestEffort bool) error {
	if err := old.check(); err != nil {
		return err
	}
	if err := replacement.checkLive(); err != nil {
		return err
	}
	if old == replacement {
		return nil
	}
	refs, err := s.IncomingRefs(old)
	if err != nil {
		return err
	}
	var todo []types.BackRef
	for _, r := range refs {
		if !s.catalog.Accepts(r.Field, replacement.class) {
			if bestEffort {
				s.log.Debug("skipping reference", "referrer", r.Source, "field", r.Field, "target", replacement.id)
				continue
			}
			return fmt.Errorf("%w: field %d of %s cannot hold %s", types.ErrReferenceRejected, r.Field, r.Source, replacement)
		}
		todo = append(todo, r)
	}
	for _, r := range todo {
		src, ok, err := s.liveReferrer(r.Source)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		info, _ := s.catalog.Field(r.Field)
		s.redirect(src, info, old.id, replacement.id)
	}
	return nil
}

// redirect rewrites every occurrence of from in src's reference field to to,
// keeping collections free of duplicates.
func (s *Store) redirect(src *Object, info types.FieldInfo, from, to types.ID) {
	old := src.value(info)
	var nv any
	switch val := old.(type) {
	case types.ID:
		if val != from {
			return
		}
		nv = to
	case []types.ID:
		ids := make([]types.ID, 0, len(val))
		for _, id := range val {
			if id == from {
				id = to
			}
			if info.Kind.IsCollection() && slices.Contains(ids, id) {
				continue
			}
			ids = append(ids, id)
		}
		nv = ids
	}
	for _, id := range idsOf(old) {
		s.refs.remove(id, src.id, info.ID)
	}
	src.put(info, nv)
	for _, id := range idsOf(nv) {
		s.refs.add(id, src.id, info.ID)
	}
	s.recorder.ObjectModified(src.id, info.ID, old, types.CloneValue(nv))
}
