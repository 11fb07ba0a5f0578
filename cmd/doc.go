// Package cmd implements the command-line interface of anyKV. It provides
// a hierarchical command structure to work with any supported store from the shell.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value operations on a single store (get, put, keys, checksum, perf, etc.)
//   - mirror: Command to copy the keys of one store into another
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Stores are configured with flags or ANYKV_* environment variables (also read from .env files).
// See anykv -help for a list of all commands.
package cmd
