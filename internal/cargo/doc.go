// Package cargo reads and rewrites Cargo manifests without a full TOML
// parser. It extracts the shared [workspace.dependencies] table from an
// upstream workspace manifest and patches vendored package manifests so
// they can be published outside that workspace.
package cargo
