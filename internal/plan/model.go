package plan

import "github.com/OpenMined/libsignal-protocol-syft/internal/cargo"

// Plan represents cratesync.yaml.
type Plan struct {
	Version           int       `yaml:"version"`
	Name              string    `yaml:"name"`
	Upstream          string    `yaml:"upstream"`
	WorkspaceManifest string    `yaml:"workspace_manifest,omitempty"`
	Dest              string    `yaml:"dest"`
	TargetVersion     string    `yaml:"target_version"`
	Packages          []Package `yaml:"packages"`
}

// Package is a single upstream package to vendor. Packages are processed in
// declaration order, so local dependencies must be declared first.
type Package struct {
	Source      string              `yaml:"source"`
	Dest        string              `yaml:"dest"`
	Description string              `yaml:"description"`
	Locals      []cargo.LocalRename `yaml:"locals,omitempty"`
	PostSync    []PostSync          `yaml:"post_sync,omitempty"`
}

// PostSync defines a command to run in the vendored package after it is patched.
type PostSync struct {
	Name    string   `yaml:"name,omitempty"`
	WorkDir string   `yaml:"workdir,omitempty"`
	Cmd     []string `yaml:"cmd"`
}

// EffectiveWorkspaceManifest returns the upstream workspace manifest path
// relative to Upstream, defaulting to "Cargo.toml".
func (p *Plan) EffectiveWorkspaceManifest() string {
	if p.WorkspaceManifest != "" {
		return p.WorkspaceManifest
	}
	return "Cargo.toml"
}

// Dests returns the destination names in declaration order.
func (p *Plan) Dests() []string {
	names := make([]string, len(p.Packages))
	for i, pkg := range p.Packages {
		names[i] = pkg.Dest
	}
	return names
}
