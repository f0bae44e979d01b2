// Package backend contains implementations of the persistent storage capability
// consumed by dbm.Store (see dbm.Backend). Each implementation lives in its own
// sub-package so that applications only pull in the SDKs they use:
//
//   - memory: A volatile backend on a concurrent hash map. Useful for tests and
//     as a reference implementation.
//   - file: A durable backend that keeps a compressed snapshot file on local disk
//     (codecs: none, zstd, lz4). Every mutation rewrites the snapshot atomically.
//   - dynamo: Stores one item per key in an Amazon DynamoDB table.
//   - minio: Stores one object per key in a MinIO (or any S3 compatible) bucket.
//   - s3: Stores one object per key in an Amazon S3 bucket using the AWS SDK.
//   - testing: A conformance suite (RunBackendTests) every backend must pass and
//     recording doubles for backend and lock capabilities.
//
// Contract:
//
//	All backends share the IBackend interface, which is method-compatible with
//	dbm.Backend. Get copies the value into the caller's buffer and returns
//	ErrNotFound for missing keys and ErrBufferTooSmall if the value does not fit.
//	Delete of a missing key is not an error.
//
//	Backends that talk to remote services apply a per-call timeout, since the
//	capability functions carry no context.
package backend
