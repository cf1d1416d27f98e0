package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/OpenMined/libsignal-protocol-syft/internal/lock"
	"github.com/OpenMined/libsignal-protocol-syft/internal/plan"
)

const (
	PlanFile     = "cratesync.yaml"
	LockFile     = "cratesync.lock.yaml"
	ManifestFile = "Cargo.toml"
)

// Context holds the resolved paths and loaded config for a workspace.
type Context struct {
	Root     string
	PlanPath string // empty when the compiled-in plan is used
	LockPath string
	Plan     *plan.Plan
	Lock     *lock.File // may be nil
}

// Load resolves workspace paths and loads the plan (and lock if present).
// planPath overrides <root>/cratesync.yaml; when neither exists the
// compiled-in plan is used.
func Load(root, planPath string) (*Context, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}

	ctx := &Context{
		Root:     root,
		LockPath: filepath.Join(root, LockFile),
	}

	switch {
	case planPath != "":
		if ctx.PlanPath, err = filepath.Abs(planPath); err != nil {
			return nil, fmt.Errorf("resolving plan path: %w", err)
		}
	case fileExists(filepath.Join(root, PlanFile)):
		ctx.PlanPath = filepath.Join(root, PlanFile)
	}

	if ctx.PlanPath != "" {
		ctx.Plan, err = plan.Load(ctx.PlanPath)
	} else {
		ctx.Plan, err = plan.Default()
	}
	if err != nil {
		return nil, err
	}

	if fileExists(ctx.LockPath) {
		lf, err := lock.Load(ctx.LockPath)
		if err != nil {
			return nil, err
		}
		ctx.Lock = lf
	}

	return ctx, nil
}

// UpstreamRoot returns the absolute path of the upstream source tree.
func (c *Context) UpstreamRoot() string {
	return filepath.Join(c.Root, c.Plan.Upstream)
}

// WorkspaceManifestPath returns the absolute path of the upstream
// workspace manifest holding [workspace.dependencies].
func (c *Context) WorkspaceManifestPath() string {
	return filepath.Join(c.UpstreamRoot(), c.Plan.EffectiveWorkspaceManifest())
}

// DestRoot returns the absolute path vendored packages are written under.
func (c *Context) DestRoot() string {
	return filepath.Join(c.Root, c.Plan.Dest)
}

// SourceDir returns the absolute upstream directory of a package.
func (c *Context) SourceDir(pkg plan.Package) string {
	return filepath.Join(c.UpstreamRoot(), pkg.Source)
}

// PackageDir returns the absolute vendored directory of a package.
func (c *Context) PackageDir(pkg plan.Package) string {
	return filepath.Join(c.DestRoot(), pkg.Dest)
}

// ManifestPath returns the vendored Cargo.toml of a package.
func (c *Context) ManifestPath(pkg plan.Package) string {
	return filepath.Join(c.PackageDir(pkg), ManifestFile)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
