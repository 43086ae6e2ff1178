package types

// FieldInfo describes one declared field, static or custom.
type FieldInfo struct {
	ID          FieldID
	Name        string
	Class       ClassID   // class that declares the field
	Kind        FieldKind // closed shape used for dispatch
	Signature   ClassID   // accepted class for object fields; empty for values
	Custom      bool
	Untouchable bool // skipped by merge
}

// Catalog answers schema questions for the engine. The engine only queries
// it; registering classes and fields is the implementation's business.
type Catalog interface {
	// FieldsOf returns the fields of class matching filter, base-class
	// fields first when includeInherited is set. Custom fields are included.
	FieldsOf(class ClassID, includeInherited bool, filter KindFilter) []FieldID

	// Field returns the declaration of id.
	Field(id FieldID) (FieldInfo, bool)

	// FieldKind returns the kind of id, or KindInvalid when undeclared.
	FieldKind(id FieldID) FieldKind

	// IsCustom reports whether id lives in the custom property overlay.
	IsCustom(id FieldID) bool

	// Accepts reports whether an object of class candidate may be stored in
	// the object field id.
	Accepts(field FieldID, candidate ClassID) bool

	// IncomingFields returns the fields, declared on any class, that can
	// hold a reference to an object of class.
	IncomingFields(class ClassID, filter KindFilter) []FieldID

	// FieldByName looks a field up by name on class and its bases.
	FieldByName(class ClassID, name string) (FieldID, bool)

	// DerivedClasses returns class and every class deriving from it.
	DerivedClasses(class ClassID) []ClassID

	IsA(class, base ClassID) bool
	Base(class ClassID) (ClassID, bool)
	HasClass(class ClassID) bool
	IsAbstract(class ClassID) bool
}
