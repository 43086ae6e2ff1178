// Package schema implements types.Catalog: a registry of classes with single
// inheritance, their static field declarations, per-installation custom
// fields added at runtime, and cached per-class dispatch tables.
package schema
