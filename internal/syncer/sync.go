package syncer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/OpenMined/libsignal-protocol-syft/internal/cargo"
	"github.com/OpenMined/libsignal-protocol-syft/internal/logging"
	"github.com/OpenMined/libsignal-protocol-syft/internal/materialize"
	"github.com/OpenMined/libsignal-protocol-syft/internal/plan"
)

const manifestFile = "Cargo.toml"

// Reporter receives human-readable progress. *ui.Progress implements it.
type Reporter interface {
	Done(label string)
	Log(format string, args ...any)
	Warn(format string, args ...any)
}

// Options configures a sync run. Paths are absolute.
type Options struct {
	UpstreamRoot      string
	WorkspaceManifest string
	DestRoot          string
	Version           string
	Packages          []plan.Package
	// Verify decodes every patched manifest and checks it before moving on.
	Verify   bool
	Logger   *log.Logger
	Reporter Reporter
	// Stdout receives post_sync command output; defaults to os.Stdout.
	Stdout io.Writer
}

// PackageResult describes one vendored package.
type PackageResult struct {
	Name           string
	Source         string
	Dir            string
	ManifestSHA256 string
	Report         *cargo.Report
	Findings       *cargo.Findings
}

// Result lists the vendored packages in the order they were processed.
type Result struct {
	Deps     cargo.Deps
	Packages []PackageResult
}

// Names returns the vendored package names in processing order.
func (r *Result) Names() []string {
	names := make([]string, len(r.Packages))
	for i, p := range r.Packages {
		names[i] = p.Name
	}
	return names
}

// Run vendors opts.Packages in order. Packages synced before a failure are
// left on disk; a rerun overwrites them.
func Run(opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	if err := os.MkdirAll(opts.DestRoot, 0o755); err != nil {
		return nil, &materialize.FilesystemError{Op: "mkdir", Path: opts.DestRoot, Err: err}
	}

	deps, err := cargo.LoadWorkspaceDeps(opts.WorkspaceManifest)
	if err != nil {
		return nil, err
	}
	if len(deps) == 0 {
		opts.Logger.Warn("no [workspace.dependencies] entries found", "manifest", opts.WorkspaceManifest)
	}
	opts.Logger.Debug("loaded workspace dependencies", "count", len(deps), "manifest", opts.WorkspaceManifest)

	result := &Result{Deps: deps}
	produced := make(map[string]bool, len(opts.Packages))
	for _, pkg := range opts.Packages {
		if err := checkOrder(pkg, produced, opts.DestRoot); err != nil {
			return result, err
		}
		res, err := syncPackage(opts, deps, pkg)
		if err != nil {
			return result, fmt.Errorf("package %s: %w", pkg.Dest, err)
		}
		produced[pkg.Dest] = true
		result.Packages = append(result.Packages, *res)
		opts.Reporter.Done(fmt.Sprintf("%s synced from %s", pkg.Dest, pkg.Source))
	}
	return result, nil
}

// checkOrder ensures every local dependency of pkg was vendored earlier in
// this run or by a previous one.
func checkOrder(pkg plan.Package, produced map[string]bool, destRoot string) error {
	for _, l := range pkg.Locals {
		if produced[l.Alias] {
			continue
		}
		if _, err := os.Stat(filepath.Join(destRoot, l.Alias, manifestFile)); err == nil {
			continue
		}
		return fmt.Errorf("package %s: local dependency %s (%s) has not been vendored yet", pkg.Dest, l.Dep, l.Alias)
	}
	return nil
}

func syncPackage(opts Options, deps cargo.Deps, pkg plan.Package) (*PackageResult, error) {
	logger := opts.Logger.With("package", pkg.Dest)
	src := filepath.Join(opts.UpstreamRoot, pkg.Source)
	dst := filepath.Join(opts.DestRoot, pkg.Dest)

	opts.Reporter.Log("Copying %s ...", pkg.Source)
	if err := materialize.Copy(src, dst); err != nil {
		return nil, err
	}

	manifest := filepath.Join(dst, manifestFile)
	report, err := cargo.PatchFile(manifest, cargo.PatchOptions{
		Name:        pkg.Dest,
		Version:     opts.Version,
		Description: pkg.Description,
		Workspace:   deps,
		Locals:      pkg.Locals,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("patched manifest",
		"locals", len(report.Locals),
		"workspace", len(report.Workspace),
		"description_inserted", report.DescriptionInserted,
		"repository_inserted", report.RepositoryInserted)
	if report.EditionMissing {
		logger.Warn("no edition line; repository and homepage defaults not added")
	}
	for _, name := range report.Unsupported {
		opts.Reporter.Warn("%s: dependency %s inherits from the workspace in a form that is not rewritten", pkg.Dest, name)
	}

	data, err := os.ReadFile(manifest) //nolint:gosec // path is a vendored manifest
	if err != nil {
		return nil, fmt.Errorf("reading patched manifest: %w", err)
	}

	res := &PackageResult{
		Name:           pkg.Dest,
		Source:         pkg.Source,
		Dir:            dst,
		ManifestSHA256: digest(data),
		Report:         report,
	}

	if opts.Verify {
		findings, err := cargo.Verify(data, cargo.Expect{Name: pkg.Dest, Version: opts.Version, Locals: pkg.Locals})
		if err != nil {
			return nil, fmt.Errorf("verifying %s: %w", manifest, err)
		}
		for _, name := range findings.Inherited {
			if _, known := deps[name]; known {
				continue // already reported as unsupported
			}
			opts.Reporter.Warn("%s: dependency %s still uses workspace = true but is not in [workspace.dependencies]", pkg.Dest, name)
		}
		res.Findings = findings
	}

	if err := runPostSync(dst, pkg.PostSync, opts); err != nil {
		return nil, err
	}
	return res, nil
}

// ManifestDigest returns the hex sha256 of the manifest at path.
func ManifestDigest(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is a vendored manifest
	if err != nil {
		return "", err
	}
	return digest(data), nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type nopReporter struct{}

func (nopReporter) Done(string)         {}
func (nopReporter) Log(string, ...any)  {}
func (nopReporter) Warn(string, ...any) {}
