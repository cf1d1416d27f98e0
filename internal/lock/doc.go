// Package lock handles parsing and writing of cratesync.lock.yaml files.
// Lock files record the upstream commit and the digest of every vendored
// manifest, so a vendored tree can be checked against the last sync.
package lock
