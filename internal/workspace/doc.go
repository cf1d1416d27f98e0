// Package workspace integrates plan and lock loading with path resolution.
// It provides the Context type that holds resolved workspace paths and the
// loaded configuration.
package workspace
