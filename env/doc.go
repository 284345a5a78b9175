// Package env exposes the embedding surface of the boundary layer.
//
// An Environment owns the handle pools, the local value stack and the
// reference registry, and wires all of them into a collector via the
// scanner registration contract. Hosts interact only with this package:
// opaque handles for short-lived values, scopes for stack discipline,
// references for durable roots and finalizers for cleanup.
//
// All Environment methods except the cross-thread release paths
// documented on the underlying types must run on the mutator thread.
package env
