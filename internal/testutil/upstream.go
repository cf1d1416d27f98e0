package testutil

import (
	"path/filepath"
	"testing"
)

// WorkspaceManifest is the upstream workspace Cargo.toml written by
// CreateUpstream.
const WorkspaceManifest = `[workspace]
members = ["rust/core", "rust/crypto", "rust/protocol"]
resolver = "2"

[workspace.package]
version = "0.80.0"
edition = "2021"

[workspace.dependencies]
aes = "0.8.3"
hex = { version = "0.4", features = ["serde"] }
rand = { version = "0.8", default-features = false }
subtle = {
    version = "2.6",
    features = ["core_hint_black_box"]
}
spqr = { git = "https://github.com/signalapp/SparsePostQuantumRatchet.git", tag = "v1.2.0" }

[profile.release]
lto = "fat"
`

// UpstreamManifests maps each upstream package directory to its Cargo.toml.
var UpstreamManifests = map[string]string{
	"third_party/spqr": `[package]
name = "spqr"
version = "1.2.0"
edition = "2021"

[dependencies]
hex = { workspace = true }
`,
	"rust/core": `[package]
name = "libsignal-core"
version.workspace = true
edition = "2021"
license = "AGPL-3.0-only"

[dependencies]
hex = { workspace = true, optional = true }
rand = { workspace = true }
`,
	"rust/crypto": `[package]
name = "signal-crypto"
version.workspace = true
description = "Upstream crypto"
edition = "2021"

[dependencies]
libsignal-core = { path = "../core" }
aes = { workspace = true, features = ["zeroize"] }
subtle = { workspace = true }
`,
	"rust/protocol": `[package]
name = "libsignal-protocol"
version.workspace = true
edition = "2021"

[dependencies]
libsignal-core = { path = "../core" }
signal-crypto = { path = "../crypto" }
spqr = { workspace = true }
rand = { workspace = true }

[dev-dependencies]
hex = { workspace = true }
`,
}

// UpstreamPlan is a plan vendoring UpstreamManifests from
// third_party/libsignal into crates.
const UpstreamPlan = `version: 1
name: libsignal
upstream: third_party/libsignal
dest: crates
target_version: 0.85.3-beta.2
packages:
  - source: third_party/spqr
    dest: spqr-syft
    description: Vendored spqr crate for syft
  - source: rust/core
    dest: libsignal-core-syft
    description: Vendored libsignal core crate for syft
  - source: rust/crypto
    dest: signal-crypto-syft
    description: Vendored libsignal crypto crate for syft
    locals:
      - dep: libsignal-core
        alias: libsignal-core-syft
  - source: rust/protocol
    dest: libsignal-protocol-syft
    description: Vendored libsignal protocol crate for syft
    locals:
      - dep: libsignal-core
        alias: libsignal-core-syft
      - dep: signal-crypto
        alias: signal-crypto-syft
      - dep: spqr
        alias: spqr-syft
`

// CreateUpstream writes a small libsignal-like workspace under
// root/third_party/libsignal and returns that directory.
func CreateUpstream(t *testing.T, root string) string {
	t.Helper()
	upstream := filepath.Join(root, "third_party", "libsignal")
	WriteFile(t, filepath.Join(upstream, "Cargo.toml"), WorkspaceManifest)
	for dir, manifest := range UpstreamManifests {
		WriteFile(t, filepath.Join(upstream, dir, "Cargo.toml"), manifest)
		WriteFile(t, filepath.Join(upstream, dir, "src", "lib.rs"), "// "+dir+"\n")
	}
	return upstream
}

// CreateWorkspace writes UpstreamPlan and an upstream tree into a fresh
// temp directory and returns it.
func CreateWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	CreateUpstream(t, root)
	WriteFile(t, filepath.Join(root, "cratesync.yaml"), UpstreamPlan)
	return root
}
