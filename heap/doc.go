// Package heap is a small mark/sweep collector used to exercise the
// scanner contract in tests and in the stress tool. It is not a general
// purpose allocator: objects are boxed host values with explicit edges,
// and a collection is a synchronous stop-the-world pass on the caller's
// thread.
package heap
