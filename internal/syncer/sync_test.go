package syncer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenMined/libsignal-protocol-syft/internal/cargo"
	"github.com/OpenMined/libsignal-protocol-syft/internal/materialize"
	"github.com/OpenMined/libsignal-protocol-syft/internal/plan"
	"github.com/OpenMined/libsignal-protocol-syft/internal/testutil"
)

type recorder struct {
	done  []string
	warns []string
}

func (r *recorder) Done(label string)  { r.done = append(r.done, label) }
func (r *recorder) Log(string, ...any) {}
func (r *recorder) Warn(format string, args ...any) {
	r.warns = append(r.warns, fmt.Sprintf(format, args...))
}

func setup(t *testing.T) (Options, *recorder) {
	t.Helper()
	root := t.TempDir()
	upstream := testutil.CreateUpstream(t, root)
	p, err := plan.Parse([]byte(testutil.UpstreamPlan))
	if err != nil {
		t.Fatalf("parse plan: %v", err)
	}
	rec := &recorder{}
	return Options{
		UpstreamRoot:      upstream,
		WorkspaceManifest: filepath.Join(upstream, "Cargo.toml"),
		DestRoot:          filepath.Join(root, "crates"),
		Version:           p.TargetVersion,
		Packages:          p.Packages,
		Verify:            true,
		Reporter:          rec,
		Stdout:            &bytes.Buffer{},
	}, rec
}

func readManifest(t *testing.T, opts Options, dest string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(opts.DestRoot, dest, "Cargo.toml"))
	if err != nil {
		t.Fatalf("read %s manifest: %v", dest, err)
	}
	return string(data)
}

func TestRun_vendorsAllPackages(t *testing.T) {
	opts, rec := setup(t)

	res, err := Run(opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"spqr-syft", "libsignal-core-syft", "signal-crypto-syft", "libsignal-protocol-syft"}
	if got := res.Names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if len(rec.done) != len(want) {
		t.Errorf("reported %d packages, want %d", len(rec.done), len(want))
	}
	if len(rec.warns) != 0 {
		t.Errorf("unexpected warnings: %v", rec.warns)
	}

	protocol := readManifest(t, opts, "libsignal-protocol-syft")
	for _, line := range []string{
		`name = "libsignal-protocol-syft"`,
		`version = "0.85.3-beta.2"`,
		`description = "Vendored libsignal protocol crate for syft"`,
		`libsignal-core = { version = "0.85.3-beta.2", package = "libsignal-core-syft", path = "../libsignal-core-syft" }`,
		`spqr = { version = "0.85.3-beta.2", package = "spqr-syft", path = "../spqr-syft" }`,
	} {
		if !strings.Contains(protocol, line) {
			t.Errorf("protocol manifest missing %q\n%s", line, protocol)
		}
	}
	if strings.Contains(protocol, "{ workspace = true") {
		t.Errorf("protocol manifest still inherits from the workspace:\n%s", protocol)
	}

	if _, err := os.Stat(filepath.Join(opts.DestRoot, "libsignal-core-syft", "src", "lib.rs")); err != nil {
		t.Errorf("source files not copied: %v", err)
	}
	for _, pkg := range res.Packages {
		if len(pkg.ManifestSHA256) != 64 {
			t.Errorf("%s digest = %q", pkg.Name, pkg.ManifestSHA256)
		}
		if pkg.Findings == nil || len(pkg.Findings.Inherited) != 0 {
			t.Errorf("%s findings = %+v", pkg.Name, pkg.Findings)
		}
	}
}

func TestRun_idempotent(t *testing.T) {
	opts, _ := setup(t)

	first, err := Run(opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	before := readManifest(t, opts, "signal-crypto-syft")

	second, err := Run(opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if after := readManifest(t, opts, "signal-crypto-syft"); after != before {
		t.Errorf("manifest changed on rerun:\n--- first\n%s\n--- second\n%s", before, after)
	}
	for i := range first.Packages {
		if first.Packages[i].ManifestSHA256 != second.Packages[i].ManifestSHA256 {
			t.Errorf("%s digest changed on rerun", first.Packages[i].Name)
		}
	}
}

func TestRun_removesStaleFiles(t *testing.T) {
	opts, _ := setup(t)
	stale := filepath.Join(opts.DestRoot, "libsignal-core-syft", "stale.rs")
	testutil.WriteFile(t, stale, "// stale\n")

	if _, err := Run(opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale file survived sync: %v", err)
	}
}

func TestRun_localNotYetVendored(t *testing.T) {
	opts, _ := setup(t)
	// protocol alone, with nothing vendored before it
	opts.Packages = opts.Packages[3:]

	_, err := Run(opts)
	if err == nil {
		t.Fatal("expected an ordering error")
	}
	if !strings.Contains(err.Error(), "has not been vendored yet") {
		t.Errorf("error = %v", err)
	}
}

func TestRun_localVendoredByEarlierRun(t *testing.T) {
	opts, _ := setup(t)
	if _, err := Run(opts); err != nil {
		t.Fatalf("full run: %v", err)
	}

	opts.Packages = opts.Packages[3:]
	res, err := Run(opts)
	if err != nil {
		t.Fatalf("partial run: %v", err)
	}
	if len(res.Packages) != 1 || res.Packages[0].Name != "libsignal-protocol-syft" {
		t.Errorf("packages = %v", res.Names())
	}
}

func TestRun_missingSource(t *testing.T) {
	opts, _ := setup(t)
	if err := os.RemoveAll(filepath.Join(opts.UpstreamRoot, "rust", "crypto")); err != nil {
		t.Fatal(err)
	}

	res, err := Run(opts)
	var fsErr *materialize.FilesystemError
	if !errors.As(err, &fsErr) {
		t.Fatalf("err = %v, want FilesystemError", err)
	}
	if !strings.Contains(err.Error(), "signal-crypto-syft") {
		t.Errorf("error does not name the package: %v", err)
	}
	// packages before the failure stay vendored
	if got := len(res.Packages); got != 2 {
		t.Errorf("synced %d packages before failure, want 2", got)
	}
}

func TestRun_missingLocalDependency(t *testing.T) {
	opts, _ := setup(t)
	manifest := filepath.Join(opts.UpstreamRoot, "rust", "crypto", "Cargo.toml")
	testutil.WriteFile(t, manifest, strings.Replace(testutil.UpstreamManifests["rust/crypto"],
		`libsignal-core = { path = "../core" }`, "", 1))

	_, err := Run(opts)
	var mf *cargo.MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("err = %v, want MissingFieldError", err)
	}
	if mf.Field != "dependency libsignal-core" {
		t.Errorf("field = %q", mf.Field)
	}
}

func TestRun_warnsOnUnsupportedInheritance(t *testing.T) {
	opts, rec := setup(t)
	manifest := filepath.Join(opts.UpstreamRoot, "rust", "core", "Cargo.toml")
	testutil.WriteFile(t, manifest, testutil.UpstreamManifests["rust/core"]+"\n[dev-dependencies]\naes.workspace = true\n")
	opts.Packages = opts.Packages[:2]

	if _, err := Run(opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.warns) != 1 || !strings.Contains(rec.warns[0], "aes") {
		t.Errorf("warnings = %v", rec.warns)
	}
}

func TestRun_emptyWorkspaceDeps(t *testing.T) {
	opts, _ := setup(t)
	testutil.WriteFile(t, opts.WorkspaceManifest, "[workspace]\nmembers = []\n")
	opts.Packages = opts.Packages[:1]
	opts.Verify = false

	res, err := Run(opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Deps) != 0 {
		t.Errorf("deps = %v, want none", res.Deps)
	}
	if got := readManifest(t, opts, "spqr-syft"); !strings.Contains(got, "hex = { workspace = true }") {
		t.Errorf("hex should be left untouched:\n%s", got)
	}
}

func TestRun_postSync(t *testing.T) {
	opts, _ := setup(t)
	opts.Packages = opts.Packages[:1]
	opts.Packages[0].PostSync = []plan.PostSync{
		{Name: "marker", Cmd: []string{"sh", "-c", "echo done > synced.txt"}},
	}

	if _, err := Run(opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(opts.DestRoot, "spqr-syft", "synced.txt")); err != nil {
		t.Errorf("post_sync did not run in the package dir: %v", err)
	}
}

func TestRun_postSyncFailure(t *testing.T) {
	opts, _ := setup(t)
	opts.Packages = opts.Packages[:1]
	opts.Packages[0].PostSync = []plan.PostSync{{Name: "fail", Cmd: []string{"false"}}}

	_, err := Run(opts)
	if err == nil || !strings.Contains(err.Error(), `post_sync "fail"`) {
		t.Fatalf("err = %v", err)
	}
}

func TestExecCmd_emptyCmd(t *testing.T) {
	opts, _ := setup(t)
	opts.Reporter = nopReporter{}
	if err := execCmd(t.TempDir(), plan.PostSync{Name: "empty"}, opts); err == nil {
		t.Fatal("expected error for empty cmd")
	}
}

func TestManifestDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Cargo.toml")
	testutil.WriteFile(t, path, "")
	got, err := ManifestDigest(path)
	if err != nil {
		t.Fatal(err)
	}
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != empty {
		t.Errorf("digest = %s", got)
	}
}
