// Package file implements a durable backend that keeps all entries in a single
// snapshot file on local disk.
//
// Every Insert and Delete rewrites the snapshot to a temporary file in the same
// directory and renames it over the previous one, so a crash leaves either the
// old or the new snapshot behind, never a partial one. Reads are served from an
// in-memory index that is loaded from the snapshot on Open.
//
// File Format (version 1):
//
//	magic     8 bytes  "TKVFILE\x00"
//	version   1 byte
//	codec     1 byte   (0 = none, 1 = zstd, 2 = lz4)
//	body      codec-compressed stream of
//	          uvarint count
//	          count x (uvarint keyLen, key, uvarint valueLen, value)
//
// Entries are written in ascending key order so that equal contents produce
// equal files.
//
// The backend is meant for small tables (the store it serves has a fixed, small
// capacity); rewriting the whole snapshot on every mutation is cheap at that size.
package file
