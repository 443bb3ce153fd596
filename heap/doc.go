// Package heap implements the four metadata heaps of a CLI image.
//
// A heap is a byte stream addressed by offset (or, for #GUID, by 1-based
// index). Every heap owns a private copy of its bytes, caches decoded values,
// and can append new values while keeping existing offsets stable:
//   - BlobHeap (#Blob): length-prefixed byte blobs.
//   - StringHeap (#Strings): null-terminated UTF-8 identifiers.
//   - GuidHeap (#GUID): 16-byte GUIDs.
//   - UserStringHeap (#US): length-prefixed UTF-16 literals.
//
// Caches are guarded by a mutex, so concurrent readers are safe. Appending
// or reconstructing while other goroutines read the same heap is not.
package heap
