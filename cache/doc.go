// Package cache provides short-lived caching of directory records.
//
// It provides a byte-oriented Cache interface with a memory implementation,
// hashed key derivation so raw identifiers never appear in keys, TTL
// policies, and a ReadThrough loader that collapses concurrent misses for the
// same key into one load.
package cache
