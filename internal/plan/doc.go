// Package plan handles the sync plan: which upstream packages are vendored,
// under which names, at which version, and in which order. A default plan
// is compiled into the binary; a cratesync.yaml at the workspace root
// replaces it.
package plan
