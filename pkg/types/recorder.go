package types

// Recorder receives change notifications from the engine so that an external
// unit of work can undo and redo them. Every call carries enough data to
// reverse the change it reports.
type Recorder interface {
	ObjectCreated(id ID, class ClassID)
	ObjectModified(id ID, field FieldID, oldValue, newValue any)
	// OwnershipChanged reports a reparent. A zero previous reference means
	// the object had no owner before (typically just created).
	OwnershipChanged(id ID, previous, current OwnerRef)
	ObjectDeleted(snapshot Snapshot)
}

// NopRecorder discards every notification.
type NopRecorder struct{}

func (NopRecorder) ObjectCreated(ID, ClassID)               {}
func (NopRecorder) ObjectModified(ID, FieldID, any, any)    {}
func (NopRecorder) OwnershipChanged(ID, OwnerRef, OwnerRef) {}
func (NopRecorder) ObjectDeleted(Snapshot)                  {}
