package schema

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

// Registry errors.
var (
	ErrDuplicateClass     = errors.New("schema: class already defined")
	ErrDuplicateField     = errors.New("schema: field already defined")
	ErrSignatureRequired  = errors.New("schema: object field needs a signature")
	ErrTooManyFields      = errors.New("schema: field numbering exhausted")
	ErrSignatureForbidden = errors.New("schema: value field cannot have a signature")
)

const (
	classStride     = 1000
	customOffset    = 500
	maxFieldsPerSet = 499
)

// FieldDef declares one field of a class.
type FieldDef struct {
	Name        string
	Kind        types.FieldKind
	Signature   types.ClassID
	Untouchable bool
}

// ClassDef declares a class. Base must already be defined.
type ClassDef struct {
	Name     types.ClassID
	Base     types.ClassID
	Abstract bool
	Fields   []FieldDef
}

type class struct {
	name     types.ClassID
	number   int
	base     types.ClassID
	abstract bool
	own      []types.FieldID
	derived  []types.ClassID
	statics  int
	customs  int
}

// Registry holds every known class and field. It is safe for concurrent
// readers; definitions take the write lock.
type Registry struct {
	mu      sync.RWMutex
	classes map[types.ClassID]*class
	order   []types.ClassID
	fields  map[types.FieldID]types.FieldInfo
	tables  map[types.ClassID][]types.FieldInfo
}

var _ types.Catalog = (*Registry)(nil)

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[types.ClassID]*class),
		fields:  make(map[types.FieldID]types.FieldInfo),
		tables:  make(map[types.ClassID][]types.FieldInfo),
	}
}

// DefineClass registers a class and its static fields.
func (r *Registry) DefineClass(def ClassDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def.Name == "" {
		return fmt.Errorf("%w: empty class name", types.ErrUnknownClass)
	}
	if _, ok := r.classes[def.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateClass, def.Name)
	}
	if def.Base != "" {
		if _, ok := r.classes[def.Base]; !ok {
			return fmt.Errorf("%w: base %s of %s", types.ErrUnknownClass, def.Base, def.Name)
		}
	}
	c := &class{
		name:     def.Name,
		number:   len(r.order) + 1,
		base:     def.Base,
		abstract: def.Abstract,
	}
	// Validate every field before registering anything.
	seen := make(map[string]bool)
	for _, f := range def.Fields {
		if seen[f.Name] {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, def.Name, f.Name)
		}
		seen[f.Name] = true
		if err := r.checkFieldLocked(def.Name, def.Base, f); err != nil {
			return fmt.Errorf("%s.%s: %w", def.Name, f.Name, err)
		}
	}
	if len(def.Fields) > maxFieldsPerSet {
		return fmt.Errorf("%w: %s", ErrTooManyFields, def.Name)
	}

	r.classes[def.Name] = c
	r.order = append(r.order, def.Name)
	for _, f := range def.Fields {
		c.statics++
		r.addFieldLocked(c, types.FieldID(c.number*classStride+c.statics), f, false)
	}
	for b := def.Base; b != ""; b = r.classes[b].base {
		r.classes[b].derived = append(r.classes[b].derived, def.Name)
	}
	clear(r.tables)
	return nil
}

// AddCustomField registers a per-installation field on class and returns its
// id. Cached dispatch tables are invalidated.
func (r *Registry) AddCustomField(className types.ClassID, def FieldDef) (types.FieldID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.classes[className]
	if !ok {
		return 0, fmt.Errorf("%w: %s", types.ErrUnknownClass, className)
	}
	if err := r.checkFieldLocked(className, className, def); err != nil {
		return 0, fmt.Errorf("%s.%s: %w", className, def.Name, err)
	}
	if c.customs >= maxFieldsPerSet {
		return 0, fmt.Errorf("%w: custom fields of %s", ErrTooManyFields, className)
	}
	c.customs++
	id := types.FieldID(c.number*classStride + customOffset + c.customs)
	r.addFieldLocked(c, id, def, true)
	clear(r.tables)
	return id, nil
}

// checkFieldLocked validates def for class self against the fields visible
// on owner (self, or its base while self is being defined).
func (r *Registry) checkFieldLocked(self, owner types.ClassID, def FieldDef) error {
	if def.Name == "" {
		return fmt.Errorf("%w: empty field name", types.ErrInvalidField)
	}
	if def.Kind == types.KindInvalid || def.Kind > types.KindReferenceSequence {
		return fmt.Errorf("%w: bad kind %d", types.ErrInvalidField, def.Kind)
	}
	if def.Kind.IsObject() {
		if def.Signature == "" {
			return ErrSignatureRequired
		}
		if _, ok := r.classes[def.Signature]; !ok && def.Signature != self {
			return fmt.Errorf("%w: signature %s", types.ErrUnknownClass, def.Signature)
		}
	} else if def.Signature != "" {
		return ErrSignatureForbidden
	}
	for c := owner; c != ""; c = r.classes[c].base {
		for _, id := range r.classes[c].own {
			if r.fields[id].Name == def.Name {
				return ErrDuplicateField
			}
		}
	}
	return nil
}

func (r *Registry) addFieldLocked(c *class, id types.FieldID, def FieldDef, custom bool) {
	r.fields[id] = types.FieldInfo{
		ID:          id,
		Name:        def.Name,
		Class:       c.name,
		Kind:        def.Kind,
		Signature:   def.Signature,
		Custom:      custom,
		Untouchable: def.Untouchable,
	}
	c.own = append(c.own, id)
}

// Table returns the dispatch table of class: every field it declares or
// inherits, base-class fields first. The slice is cached and must not be
// modified.
func (r *Registry) Table(className types.ClassID) []types.FieldInfo {
	r.mu.RLock()
	t, ok := r.tables[className]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tables[className]; ok {
		return t
	}
	if _, ok := r.classes[className]; !ok {
		return nil
	}
	var chain []*class
	for c := className; c != ""; c = r.classes[c].base {
		chain = append(chain, r.classes[c])
	}
	t = []types.FieldInfo{}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, id := range chain[i].own {
			t = append(t, r.fields[id])
		}
	}
	r.tables[className] = t
	return t
}

// FieldsOf implements types.Catalog.
func (r *Registry) FieldsOf(className types.ClassID, includeInherited bool, filter types.KindFilter) []types.FieldID {
	var out []types.FieldID
	if includeInherited {
		for _, f := range r.Table(className) {
			if filter.Match(f.Kind) {
				out = append(out, f.ID)
			}
		}
		return out
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[className]
	if !ok {
		return nil
	}
	for _, id := range c.own {
		if filter.Match(r.fields[id].Kind) {
			out = append(out, id)
		}
	}
	return out
}

// Field implements types.Catalog.
func (r *Registry) Field(id types.FieldID) (types.FieldInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fields[id]
	return f, ok
}

// FieldKind implements types.Catalog.
func (r *Registry) FieldKind(id types.FieldID) types.FieldKind {
	f, _ := r.Field(id)
	return f.Kind
}

// IsCustom implements types.Catalog.
func (r *Registry) IsCustom(id types.FieldID) bool {
	f, _ := r.Field(id)
	return f.Custom
}

// Accepts implements types.Catalog.
func (r *Registry) Accepts(field types.FieldID, candidate types.ClassID) bool {
	f, ok := r.Field(field)
	if !ok || !f.Kind.IsObject() {
		return false
	}
	return r.IsA(candidate, f.Signature)
}

// IncomingFields implements types.Catalog. Fields are returned in id order.
func (r *Registry) IncomingFields(className types.ClassID, filter types.KindFilter) []types.FieldID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.FieldID
	for id, f := range r.fields {
		if !f.Kind.IsObject() || !filter.Match(f.Kind) {
			continue
		}
		if r.isALocked(className, f.Signature) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// FieldByName implements types.Catalog.
func (r *Registry) FieldByName(className types.ClassID, name string) (types.FieldID, bool) {
	for _, f := range r.Table(className) {
		if f.Name == name {
			return f.ID, true
		}
	}
	return 0, false
}

// DerivedClasses implements types.Catalog.
func (r *Registry) DerivedClasses(className types.ClassID) []types.ClassID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[className]
	if !ok {
		return nil
	}
	return append([]types.ClassID{className}, c.derived...)
}

// IsA implements types.Catalog.
func (r *Registry) IsA(className, base types.ClassID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isALocked(className, base)
}

func (r *Registry) isALocked(className, base types.ClassID) bool {
	for c := className; c != ""; {
		if c == base {
			return true
		}
		entry, ok := r.classes[c]
		if !ok {
			return false
		}
		c = entry.base
	}
	return false
}

// Base implements types.Catalog.
func (r *Registry) Base(className types.ClassID) (types.ClassID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[className]
	if !ok || c.base == "" {
		return "", false
	}
	return c.base, true
}

// HasClass implements types.Catalog.
func (r *Registry) HasClass(className types.ClassID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classes[className]
	return ok
}

// IsAbstract implements types.Catalog.
func (r *Registry) IsAbstract(className types.ClassID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[className]
	return ok && c.abstract
}

// Classes returns every class name in definition order.
func (r *Registry) Classes() []types.ClassID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
