// Package cmd implements the command-line interface for tKV, a fixed-capacity
// key-value table with a RAM tier and a persistent NVM tier. It provides a
// hierarchical command structure for running single operations and benchmarks
// against a table backed by one of the supported backends.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for table operations (set, get, del, free, info) and the perf tool
//   - util: Shared utilities for flags, configuration and store construction (internal use)
//
// Configuration is read from flags, from TKV_* environment variables and from
// .env / .env.local files in the working directory. For example TKV_BACKEND=minio
// is equivalent to --backend=minio.
//
// See tkv -help for a list of all commands.
package cmd
