package plan

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultPlan []byte

// Default returns the plan compiled into the binary.
func Default() (*Plan, error) {
	p, err := Parse(defaultPlan)
	if err != nil {
		return nil, fmt.Errorf("default plan: %w", err)
	}
	return p, nil
}

// DefaultData returns the raw YAML of the compiled-in plan.
func DefaultData() []byte {
	return append([]byte(nil), defaultPlan...)
}

// Save validates and writes a plan to disk.
func Save(path string, p *Plan) error {
	if err := validate(p); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil { //nolint:gosec // plan file needs to be readable
		return fmt.Errorf("writing plan: %w", err)
	}
	return nil
}

// Load reads and validates a cratesync.yaml file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is the workspace plan file
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates cratesync.yaml content.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan YAML: %w", err)
	}
	if err := validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func validate(p *Plan) error {
	if p.Version != 1 {
		return fmt.Errorf("unsupported plan version: %d (expected 1)", p.Version)
	}
	if p.Name == "" {
		return fmt.Errorf("plan: name is required")
	}
	if p.Upstream == "" {
		return fmt.Errorf("plan: upstream is required")
	}
	if err := validatePath(p.Upstream, "upstream"); err != nil {
		return err
	}
	if err := validatePath(p.EffectiveWorkspaceManifest(), "workspace_manifest"); err != nil {
		return err
	}
	if p.Dest == "" {
		return fmt.Errorf("plan: dest is required")
	}
	if err := validatePath(p.Dest, "dest"); err != nil {
		return err
	}
	if overlaps(p.Dest, p.Upstream) {
		return fmt.Errorf("plan: dest %q overlaps upstream %q", p.Dest, p.Upstream)
	}
	if err := ValidateVersion(p.TargetVersion); err != nil {
		return fmt.Errorf("plan: target_version: %w", err)
	}

	seen := make(map[string]bool, len(p.Packages))
	for i, pkg := range p.Packages {
		if err := validatePackage(i, pkg, seen); err != nil {
			return err
		}
		seen[pkg.Dest] = true
	}
	return nil
}

// ValidateVersion checks that v is a plain semantic version such as
// "1.2.3" or "1.2.3-beta.1".
func ValidateVersion(v string) error {
	if v == "" {
		return fmt.Errorf("version is required")
	}
	if !semver.IsValid("v"+v) || semver.Canonical("v"+v) != "v"+v {
		return fmt.Errorf("invalid semantic version %q", v)
	}
	return nil
}

func validatePackage(i int, pkg Package, seen map[string]bool) error {
	if pkg.Source == "" {
		return fmt.Errorf("plan: packages[%d].source is required", i)
	}
	if err := validatePath(pkg.Source, fmt.Sprintf("packages[%d].source", i)); err != nil {
		return err
	}
	if pkg.Dest == "" {
		return fmt.Errorf("plan: packages[%d].dest is required", i)
	}
	if pkg.Dest == "." || pkg.Dest == ".." || strings.ContainsAny(pkg.Dest, `/\`) {
		return fmt.Errorf("plan: packages[%d].dest must be a plain name: %q", i, pkg.Dest)
	}
	if seen[pkg.Dest] {
		return fmt.Errorf("plan: duplicate package dest %q", pkg.Dest)
	}
	if pkg.Description == "" {
		return fmt.Errorf("plan: packages[%d] (%s).description is required", i, pkg.Dest)
	}

	deps := make(map[string]bool, len(pkg.Locals))
	for j, l := range pkg.Locals {
		label := fmt.Sprintf("packages[%d] (%s).locals[%d]", i, pkg.Dest, j)
		if l.Dep == "" || l.Alias == "" {
			return fmt.Errorf("plan: %s: dep and alias are required", label)
		}
		if deps[l.Dep] {
			return fmt.Errorf("plan: %s: duplicate dep %q", label, l.Dep)
		}
		deps[l.Dep] = true
		if !seen[l.Alias] {
			return fmt.Errorf("plan: %s: alias %q must be declared as a package before %s", label, l.Alias, pkg.Dest)
		}
	}

	for j, ps := range pkg.PostSync {
		if len(ps.Cmd) == 0 {
			return fmt.Errorf("plan: packages[%d] (%s).post_sync[%d].cmd is required", i, pkg.Dest, j)
		}
		if ps.WorkDir != "" {
			label := fmt.Sprintf("packages[%d] (%s).post_sync[%d].workdir", i, pkg.Dest, j)
			if err := validatePath(ps.WorkDir, label); err != nil {
				return err
			}
		}
	}
	return nil
}

// validatePath ensures a path is relative and does not escape the workspace.
func validatePath(p, label string) error {
	if filepath.IsAbs(p) {
		return fmt.Errorf("plan: %s: absolute path is not allowed: %s", label, p)
	}
	cleaned := filepath.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("plan: %s: path must not escape workspace (contains ..): %s", label, p)
	}
	return nil
}

// overlaps reports whether one cleaned path equals or contains the other.
// Sync clears the dest tree, so it must stay disjoint from upstream.
func overlaps(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b || a == "." || b == "." {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(a, b+sep) || strings.HasPrefix(b, a+sep)
}

// FilterPackages returns the packages matching --only / --skip flags,
// keeping declaration order.
func FilterPackages(pkgs []Package, only, skip []string) []Package {
	if len(only) == 0 && len(skip) == 0 {
		return pkgs
	}
	onlySet := toSet(only)
	skipSet := toSet(skip)

	var result []Package
	for _, p := range pkgs {
		if len(onlySet) > 0 && !onlySet[p.Dest] {
			continue
		}
		if skipSet[p.Dest] {
			continue
		}
		result = append(result, p)
	}
	return result
}

// UnknownDests returns the names in ids that no package declares.
func UnknownDests(pkgs []Package, ids []string) []string {
	known := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		known[p.Dest] = true
	}
	var unknown []string
	for _, id := range ids {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	return unknown
}

// SetTargetVersion rewrites target_version in a plan document, keeping
// comments and key order.
func SetTargetVersion(data []byte, v string) ([]byte, error) {
	if err := ValidateVersion(v); err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing plan YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("plan: document is not a mapping")
	}

	root := doc.Content[0]
	found := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "target_version" {
			root.Content[i+1].Value = v
			root.Content[i+1].Tag = "!!str"
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("plan: target_version not found")
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling plan: %w", err)
	}
	if _, err := Parse(out); err != nil {
		return nil, err
	}
	return out, nil
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
