package cargo

import (
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// Expect is the state a patched manifest must be in.
type Expect struct {
	Name    string
	Version string
	Locals  []LocalRename
}

// Findings lists non-fatal observations from Verify.
type Findings struct {
	// Inherited names dependencies that still declare workspace = true.
	Inherited []string
}

// Verify decodes a patched manifest and checks the package identity and
// every local dependency against want.
func Verify(data []byte, want Expect) (*Findings, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding patched manifest: %w", err)
	}

	pkg, ok := doc["package"].(map[string]any)
	if !ok {
		return nil, &MissingFieldError{Field: "[package]"}
	}
	if got, _ := pkg["name"].(string); got != want.Name {
		return nil, fmt.Errorf("package.name = %q, want %q", got, want.Name)
	}
	if got, _ := pkg["version"].(string); got != want.Version {
		return nil, fmt.Errorf("package.version = %q, want %q", got, want.Version)
	}
	if _, ok := pkg["description"].(string); !ok {
		return nil, &MissingFieldError{Field: "description"}
	}

	tables := dependencyTables(doc)
	for _, l := range want.Locals {
		found := false
		for _, deps := range tables {
			dep, ok := deps[l.Dep].(map[string]any)
			if !ok {
				continue
			}
			found = true
			if err := checkLocal(l, dep, want.Version); err != nil {
				return nil, err
			}
		}
		if !found {
			return nil, &MissingFieldError{Field: "dependency " + l.Dep}
		}
	}

	findings := &Findings{}
	seen := make(map[string]bool)
	for _, deps := range tables {
		for name, v := range deps {
			dep, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if inherit, _ := dep["workspace"].(bool); inherit && !seen[name] {
				seen[name] = true
				findings.Inherited = append(findings.Inherited, name)
			}
		}
	}
	sort.Strings(findings.Inherited)
	return findings, nil
}

func checkLocal(l LocalRename, dep map[string]any, version string) error {
	want := map[string]string{
		"version": version,
		"package": l.Alias,
		"path":    "../" + l.Alias,
	}
	for key, w := range want {
		if got, _ := dep[key].(string); got != w {
			return fmt.Errorf("dependency %s: %s = %q, want %q", l.Dep, key, got, w)
		}
	}
	return nil
}

// dependencyTables collects every dependency table in the manifest,
// including target-specific ones.
func dependencyTables(doc map[string]any) []map[string]any {
	kinds := []string{"dependencies", "dev-dependencies", "build-dependencies"}

	var out []map[string]any
	collect := func(parent map[string]any) {
		for _, k := range kinds {
			if t, ok := parent[k].(map[string]any); ok {
				out = append(out, t)
			}
		}
	}

	collect(doc)
	if targets, ok := doc["target"].(map[string]any); ok {
		names := make([]string, 0, len(targets))
		for name := range targets {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if t, ok := targets[name].(map[string]any); ok {
				collect(t)
			}
		}
	}
	return out
}
