package cargo

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const testVersion = "0.85.3-beta.2"

const protocolManifest = `[package]
name = "libsignal-protocol"
version.workspace = true
authors.workspace = true
license.workspace = true
edition = "2021"

[dependencies]
libsignal-core = { path = "../core" }
signal-crypto = { path = "../crypto", features = ["x"] }
spqr = { workspace = true }
aes = { workspace = true }
hex = { workspace = true, optional = true }
rand_core = { workspace = true }
serde.workspace = true

[dev-dependencies]
libsignal-core = { path = "../core", features = ["test"] }
criterion = { workspace = true }

[[bench]]
name = "session"
`

func protocolOptions() PatchOptions {
	return PatchOptions{
		Name:        "libsignal-protocol-syft",
		Version:     testVersion,
		Description: "Vendored libsignal protocol crate for syft",
		Workspace: Deps{
			"aes":       `version = "0.8.3"`,
			"hex":       `version = "0.4", features = ["serde"]`,
			"core":      `version = "9.9"`,
			"rand_core": `version = "0.6"`,
			"serde":     `version = "1.0"`,
			"spqr":      `git = "https://example.com/spqr"`,
		},
		Locals: []LocalRename{
			{Dep: "libsignal-core", Alias: "libsignal-core-syft"},
			{Dep: "signal-crypto", Alias: "signal-crypto-syft"},
			{Dep: "spqr", Alias: "spqr-syft"},
		},
	}
}

func TestPatch_protocolManifest(t *testing.T) {
	out, report, err := Patch(protocolManifest, protocolOptions())
	if err != nil {
		t.Fatalf("Patch() error: %v", err)
	}

	got := strings.Split(out, "\n")
	header := []string{
		`[package]`,
		`description = "Vendored libsignal protocol crate for syft"`,
		`name = "libsignal-protocol-syft"`,
		`version = "0.85.3-beta.2"`,
	}
	defaults := []string{
		`repository.workspace = true`,
		`homepage.workspace = true`,
		`edition = "2021"`,
	}
	if !hasSubsequence(got, header) || !hasSubsequence(got, defaults) {
		t.Errorf("package section not patched as expected:\n%s", out)
	}

	for _, want := range []string{
		`libsignal-core = { version = "0.85.3-beta.2", package = "libsignal-core-syft", path = "../libsignal-core-syft" }`,
		`signal-crypto = { version = "0.85.3-beta.2", package = "signal-crypto-syft", path = "../signal-crypto-syft" }`,
		`spqr = { version = "0.85.3-beta.2", package = "spqr-syft", path = "../spqr-syft" }`,
		`aes = { version = "0.8.3" }`,
		`hex = { version = "0.4", features = ["serde"], optional = true }`,
		`rand_core = { version = "0.6" }`,
		`criterion = { workspace = true }`,
		`serde.workspace = true`,
		"[[bench]]\nname = \"session\"",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, `version = "9.9"`) {
		t.Error("dependency core must not match rand_core")
	}

	if report.Locals["libsignal-core"] != 2 {
		t.Errorf("libsignal-core rewrites = %d, want 2", report.Locals["libsignal-core"])
	}
	if !report.DescriptionInserted || !report.RepositoryInserted {
		t.Errorf("report = %+v, want description and repository inserted", report)
	}
	if want := []string{"aes", "hex", "rand_core"}; !reflect.DeepEqual(report.Workspace, want) {
		t.Errorf("report.Workspace = %v, want %v", report.Workspace, want)
	}
	if want := []string{"serde"}; !reflect.DeepEqual(report.Unsupported, want) {
		t.Errorf("report.Unsupported = %v, want %v", report.Unsupported, want)
	}
}

func TestPatch_descriptionInsertedAfterPackage(t *testing.T) {
	in := "[package]\nname = \"a\"\nversion = \"0.1\"\nedition = \"2021\"\n"
	out, _, err := Patch(in, PatchOptions{Name: "a", Version: "0.1", Description: "D"})
	if err != nil {
		t.Fatal(err)
	}
	want := "[package]\ndescription = \"D\"\nname = \"a\"\nversion = \"0.1\"\n" +
		"repository.workspace = true\nhomepage.workspace = true\nedition = \"2021\"\n"
	if out != want {
		t.Errorf("got:\n%s\nwant:\n%s", out, want)
	}
}

func TestPatch_descriptionWorkspace(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"dotted", "description.workspace = true"},
		{"inline table", "description = { workspace = true }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := "[package]\nname = \"a\"\nversion = \"0.1\"\n" + tt.line + "\nedition = \"2021\"\n"
			out, report, err := Patch(in, PatchOptions{Name: "a", Version: "0.1", Description: "D"})
			if err != nil {
				t.Fatal(err)
			}
			if report.DescriptionInserted {
				t.Error("DescriptionInserted = true, want the inherited line replaced")
			}
			if n := strings.Count(out, "description"); n != 1 {
				t.Errorf("description appears %d times:\n%s", n, out)
			}
			if !strings.Contains(out, "\ndescription = \"D\"\n") {
				t.Errorf("missing replaced description:\n%s", out)
			}
			if _, err := Verify([]byte(out), Expect{Name: "a", Version: "0.1"}); err != nil {
				t.Errorf("Verify: %v", err)
			}
		})
	}
}

func TestPatch_existingFieldsReplaced(t *testing.T) {
	in := `[package]
name = "old"
version = "1.0.0"
description = "old description"
repository = "https://example.com/repo"
edition = "2021"

[package.metadata.docs]
name = "not-the-package-name"
version = "9.9.9"
`
	out, report, err := Patch(in, PatchOptions{Name: "new", Version: "2.0.0", Description: `says "hi"`})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`name = "new"`,
		`version = "2.0.0"`,
		`description = "says \"hi\""`,
		`name = "not-the-package-name"`,
		`version = "9.9.9"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "repository.workspace") || report.RepositoryInserted {
		t.Error("repository defaults must not be added when repository is set")
	}
	if report.DescriptionInserted {
		t.Error("description should have been replaced, not inserted")
	}
}

func TestPatch_workspaceSnippetScenario(t *testing.T) {
	in := "[package]\nname = \"a\"\nversion = \"0.1\"\nrepository = \"r\"\n\n[dependencies]\nfoo = { workspace = true, optional = true }\n"
	opts := PatchOptions{
		Name:      "a",
		Version:   "0.1",
		Workspace: Deps{"foo": `version = "1.2", features = ["x"]`},
	}
	out, _, err := Patch(in, opts)
	if err != nil {
		t.Fatal(err)
	}
	want := `foo = { version = "1.2", features = ["x"], optional = true }`
	if !strings.Contains(out, want) {
		t.Errorf("output missing %q:\n%s", want, out)
	}
	if strings.Contains(out, "workspace = true") {
		t.Errorf("workspace marker left behind:\n%s", out)
	}
}

func TestPatch_localRenameScenario(t *testing.T) {
	in := "[package]\nname = \"c\"\nversion = \"0.1\"\nedition = \"2021\"\n\n[dependencies]\nlibsignal-core = { path = \"../core\" }\n"
	opts := PatchOptions{
		Name:    "signal-crypto-syft",
		Version: testVersion,
		Locals:  []LocalRename{{Dep: "libsignal-core", Alias: "libsignal-core-syft"}},
	}
	out, _, err := Patch(in, opts)
	if err != nil {
		t.Fatal(err)
	}
	want := `libsignal-core = { version = "0.85.3-beta.2", package = "libsignal-core-syft", path = "../libsignal-core-syft" }`
	if !strings.Contains(out, want+"\n") {
		t.Errorf("output missing %q:\n%s", want, out)
	}
}

func TestPatch_missingFields(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		opts  PatchOptions
		field string
	}{
		{"name", "[package]\nversion = \"1\"\n", PatchOptions{}, "name"},
		{"version", "[package]\nname = \"a\"\n", PatchOptions{}, "version"},
		{"package header", "name = \"a\"\nversion = \"1\"\n", PatchOptions{}, "[package]"},
		{
			"local dependency",
			"[package]\nname = \"a\"\nversion = \"1\"\n[dependencies]\nlibsignal-core.workspace = true\n",
			PatchOptions{Locals: []LocalRename{{Dep: "libsignal-core", Alias: "x"}}},
			"dependency libsignal-core",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Patch(tt.text, tt.opts)
			var mf *MissingFieldError
			if !errors.As(err, &mf) {
				t.Fatalf("error = %v, want MissingFieldError", err)
			}
			if mf.Field != tt.field {
				t.Errorf("field = %q, want %q", mf.Field, tt.field)
			}
		})
	}
}

func TestPatch_noEdition(t *testing.T) {
	in := "[package]\nname = \"a\"\nversion = \"1\"\n"
	out, report, err := Patch(in, PatchOptions{Name: "a", Version: "1", Description: "d"})
	if err != nil {
		t.Fatal(err)
	}
	if !report.EditionMissing || strings.Contains(out, "repository.workspace") {
		t.Errorf("expected repository defaults to be skipped, report = %+v", report)
	}
}

func TestPatch_crlf(t *testing.T) {
	in := "[package]\r\nname = \"a\"\r\nversion = \"1\"\r\nedition = \"2021\"\r\n"
	out, _, err := Patch(in, PatchOptions{Name: "b", Version: "2", Description: "d"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "name = \"b\"\r\n") || !strings.Contains(out, "version = \"2\"\r\n") {
		t.Errorf("line endings not preserved: %q", out)
	}
}

func TestPatch_idempotent(t *testing.T) {
	opts := protocolOptions()
	once, _, err := Patch(protocolManifest, opts)
	if err != nil {
		t.Fatal(err)
	}
	// Local dependencies are already rewritten; patching again must not
	// change anything else.
	twice, _, err := Patch(once, opts)
	if err != nil {
		t.Fatal(err)
	}
	if once != twice {
		t.Errorf("second patch changed output:\n%s\n---\n%s", once, twice)
	}
}

func TestPatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Cargo.toml")
	if err := os.WriteFile(path, []byte(protocolManifest), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := PatchFile(path, protocolOptions()); err != nil {
		t.Fatalf("PatchFile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `name = "libsignal-protocol-syft"`) {
		t.Errorf("manifest not rewritten:\n%s", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestPatchFile_namesManifestInError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Cargo.toml")
	if err := os.WriteFile(path, []byte("[package]\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := PatchFile(path, PatchOptions{Name: "a"})
	var mf *MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("error = %v, want MissingFieldError", err)
	}
	if mf.Manifest != path {
		t.Errorf("manifest = %q, want %q", mf.Manifest, path)
	}
	if !strings.Contains(err.Error(), path) || !strings.Contains(err.Error(), "name") {
		t.Errorf("error %q should name the manifest and field", err)
	}
}

// hasSubsequence reports whether want appears in got as consecutive lines.
func hasSubsequence(got, want []string) bool {
	for i := 0; i+len(want) <= len(got); i++ {
		if reflect.DeepEqual(got[i:i+len(want)], want) {
			return true
		}
	}
	return false
}
