// Package snapshot stores serialized metadata directories as checksummed,
// optionally compressed images.
//
// A snapshot is a 32-byte section.SnapshotHeader followed by the payload:
//
//	+--------------------+------------------------------+
//	| SnapshotHeader     | payload (PayloadSize bytes)  |
//	| magic "CDMS", v1   | directory, compressed with   |
//	| compression, sizes | the header's codec           |
//	| xxHash64, time     |                              |
//	+--------------------+------------------------------+
//
// The checksum covers the uncompressed directory, so a snapshot re-encoded
// with a different codec keeps its checksum.
package snapshot
