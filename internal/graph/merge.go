package graph

import (
	"fmt"
	"slices"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

// Merge folds source into target and deletes source. Both must share a
// class; a mismatch is logged and the call does nothing. Value fields fill
// empty target values, and with loseNoData differing strings are joined.
// Atomic fields adopt the source value when the target is empty; two owned
// sub-objects are merged recursively when loseNoData is set. Vectors are
// united. Every reference to source is then redirected to target before
// source is deleted.
func (s *Store) Merge(target, source *Object, loseNoData bool) error {
	if err := target.checkLive(); err != nil {
		return err
	}
	if err := source.checkLive(); err != nil {
		return err
	}
	if target == source {
		merges.WithLabelValues("self").Inc()
		return nil
	}
	if target.class != source.class {
		s.log.Warn("merge skipped: class mismatch",
			"target", target.id, "target_class", target.class,
			"source", source.id, "source_class", source.class)
		merges.WithLabelValues("class_mismatch").Inc()
		return nil
	}
	if err := s.merge(target, source, loseNoData); err != nil {
		merges.WithLabelValues("error").Inc()
		return err
	}
	merges.WithLabelValues("merged").Inc()
	return nil
}

func (s *Store) merge(target, source *Object, loseNoData bool) error {
	owned, err := target.IsOwnedBy(source)
	if err != nil {
		return err
	}
	if owned {
		return fmt.Errorf("%w: cannot merge %s into %s which it owns", types.ErrInvalidOwnership, source, target)
	}

	rules := s.rulesFor(target.class)
	for _, info := range s.objectFields(target, types.FilterAll) {
		if info.Untouchable || slices.Contains(rules.MergeSkip, info.ID) {
			continue
		}
		if err := s.mergeField(target, source, info, loseNoData, rules); err != nil {
			return fmt.Errorf("merging %s.%s: %w", target.class, info.Name, err)
		}
	}

	if err := s.ReplaceReferences(source, target, false); err != nil {
		return err
	}
	return s.deleteObject(source, causeExplicit)
}

func (s *Store) mergeField(target, source *Object, info types.FieldInfo, loseNoData bool, rules *Rules) error {
	sv := source.raw(info)
	if types.IsDefault(info.Kind, sv) {
		return nil
	}
	tv := target.raw(info)

	switch {
	case info.Kind.IsValue():
		if types.IsDefault(info.Kind, tv) {
			return s.setValue(target, info, types.CloneValue(sv), true)
		}
		if info.Kind == types.KindString && loseNoData && tv != sv {
			return s.setValue(target, info, tv.(string)+rules.separator()+sv.(string), true)
		}
		return nil

	case info.Kind.IsAtomic():
		src, err := s.Resolve(sv.(types.ID))
		if err != nil {
			return err
		}
		if types.IsDefault(info.Kind, tv) {
			return s.setAtomic(target, info, src, true)
		}
		if info.Kind.IsOwning() && loseNoData {
			dst, err := s.Resolve(tv.(types.ID))
			if err != nil {
				return err
			}
			return s.Merge(dst, src, true)
		}
		return nil

	default:
		v := &Vector{obj: target, info: info}
		for _, id := range slices.Clone(idsOf(sv)) {
			elem, err := s.Resolve(id)
			if err != nil {
				return err
			}
			if err := v.Append(elem); err != nil {
				return err
			}
		}
		return nil
	}
}
