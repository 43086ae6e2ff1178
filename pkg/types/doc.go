// Package types defines the contracts shared by the thicket object-graph
// engine, its schema catalog, its persistence backends, and its change
// recorders: identifiers, field kinds, owner references, persisted record
// surrogates, configuration, and the standard error values.
//
// The engine itself lives in internal/graph; everything a collaborator has to
// implement or consume (Catalog, Recorder, Source, Sink, Backend) is declared
// here so that collaborators never import the engine.
package types
