// Package stack implements the non-relocating value stack that backs
// scoped (LIFO) native handles.
//
// Values are pushed into chunks whose capacity doubles up to a cap. A chunk
// is never reallocated once created, so a *Value cell returned by Push
// stays at a stable address across later pushes - required because host
// code keeps raw pointers into earlier chunks.
//
// A Marker is a checkpoint (chunk index + item index) pointing just past
// the last element at the time it was taken. Handle scopes are built
// entirely from markers: entering a scope takes a marker, leaving a scope
// truncates to it, freeing every value pushed since entry in one call.
// Markers must be released LIFO; truncating to a marker invalidated by an
// earlier pop or truncate fails the structural validity check.
package stack
