package lock

// File represents cratesync.lock.yaml.
type File struct {
	Version        int                 `yaml:"version"`
	Name           string              `yaml:"name"`
	GeneratedAt    string              `yaml:"generated_at"`
	ToolVersion    string              `yaml:"tool_version"`
	TargetVersion  string              `yaml:"target_version"`
	UpstreamCommit string              `yaml:"upstream_commit,omitempty"`
	Packages       map[string]*Package `yaml:"packages"`
}

// Package records the vendored state of a single package.
type Package struct {
	Source         string `yaml:"source"`
	Version        string `yaml:"version"`
	ManifestSHA256 string `yaml:"manifest_sha256"`
}
