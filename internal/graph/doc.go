// Package graph is the in-memory object-graph engine.
//
// A Store is the identity map: it hands out objects by durable id and by
// session handle, fluffing placeholders from a types.Source on demand. On
// top of it sit the ownership manager (SetOwner, owning field resolution,
// cascading Delete), the reference index (a secondary index from target id
// to the (referrer, field) pairs pointing at it, completed lazily per class
// and field), the merge engine, and the custom property overlay with its
// tagged text codec. Every mutation is reported to a types.Recorder.
//
// Fields hold ids rather than pointers and owners are (id, field) pairs
// resolved through the store, so the graph never carries cyclic live
// pointers.
package graph
