package cargo

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	nameLine        = regexp.MustCompile(`^name\s*=\s*".*"\s*$`)
	versionLine     = regexp.MustCompile(`^version(\s*=\s*".*"|\.workspace\s*=\s*true)\s*$`)
	descriptionLine = regexp.MustCompile(`^description(\s*=\s*".*"|\.workspace\s*=\s*true|\s*=\s*\{\s*workspace\s*=\s*true\s*\})\s*$`)
	packageHeader   = regexp.MustCompile(`^\s*\[package\]`)
	editionLine     = regexp.MustCompile(`^edition\s*=`)

	tomlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
)

// LocalRename redirects a path dependency on an upstream sibling to the
// renamed vendored package.
type LocalRename struct {
	Dep   string `yaml:"dep"`
	Alias string `yaml:"alias"`
}

// PatchOptions describes how a vendored manifest is rewritten.
type PatchOptions struct {
	Name        string
	Version     string
	Description string
	Workspace   Deps
	Locals      []LocalRename
}

// Report summarizes what Patch changed.
type Report struct {
	DescriptionInserted bool
	RepositoryInserted  bool
	// EditionMissing is set when repository/homepage defaults were wanted but
	// there was no edition line to anchor them to.
	EditionMissing bool
	// Locals counts replacements per local dependency.
	Locals map[string]int
	// Workspace lists workspace dependencies whose marker was substituted.
	Workspace []string
	// Unsupported lists workspace dependencies that inherit from the
	// workspace in a shape the patcher does not rewrite.
	Unsupported []string
}

// PatchFile rewrites the manifest at path in place.
func PatchFile(path string, opts PatchOptions) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is a vendored manifest
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	out, report, err := Patch(string(data), opts)
	if err != nil {
		var mf *MissingFieldError
		if errors.As(err, &mf) {
			mf.Manifest = path
		}
		return nil, err
	}

	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return report, nil
}

// Patch applies the vendoring rewrites to manifest text, in order: package
// name, version, description, repository/homepage defaults, local path
// dependencies, then workspace-inherited dependencies.
func Patch(text string, opts PatchOptions) (string, *Report, error) {
	report := &Report{Locals: make(map[string]int, len(opts.Locals))}
	lines := strings.Split(text, "\n")

	if !replaceFirstLine(lines, nameLine, "name = "+tomlString(opts.Name)) {
		return "", nil, &MissingFieldError{Field: "name"}
	}
	if !replaceFirstLine(lines, versionLine, "version = "+tomlString(opts.Version)) {
		return "", nil, &MissingFieldError{Field: "version"}
	}

	description := "description = " + tomlString(opts.Description)
	if !replaceFirstLine(lines, descriptionLine, description) {
		i := firstLine(lines, packageHeader)
		if i < 0 {
			return "", nil, &MissingFieldError{Field: "[package]"}
		}
		lines = insertLines(lines, i+1, description)
		report.DescriptionInserted = true
	}

	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "repository.workspace = true") && !strings.Contains(joined, "repository = ") {
		if i := firstLine(lines, editionLine); i >= 0 {
			lines = insertLines(lines, i, "repository.workspace = true", "homepage.workspace = true")
			report.RepositoryInserted = true
		} else {
			report.EditionMissing = true
		}
	}
	text = strings.Join(lines, "\n")

	localNames := make(map[string]bool, len(opts.Locals))
	for _, l := range opts.Locals {
		var n int
		text, n = rewriteLocal(text, l, opts.Version)
		if n == 0 {
			return "", nil, &MissingFieldError{Field: "dependency " + l.Dep}
		}
		report.Locals[l.Dep] = n
		localNames[l.Dep] = true
	}

	for _, name := range opts.Workspace.Names() {
		if localNames[name] {
			continue
		}
		var n int
		text, n = rewriteWorkspace(text, name, opts.Workspace[name])
		if n > 0 {
			report.Workspace = append(report.Workspace, name)
			continue
		}
		if inheritsUnsupported(text, name) {
			report.Unsupported = append(report.Unsupported, name)
		}
	}

	return text, report, nil
}

// replaceFirstLine swaps the first line matching re for repl.
func replaceFirstLine(lines []string, re *regexp.Regexp, repl string) bool {
	i := firstLine(lines, re)
	if i < 0 {
		return false
	}
	if strings.HasSuffix(lines[i], "\r") {
		repl += "\r"
	}
	lines[i] = repl
	return true
}

func firstLine(lines []string, re *regexp.Regexp) int {
	for i, line := range lines {
		if re.MatchString(strings.TrimSuffix(line, "\r")) {
			return i
		}
	}
	return -1
}

func insertLines(lines []string, at int, add ...string) []string {
	out := make([]string, 0, len(lines)+len(add))
	out = append(out, lines[:at]...)
	out = append(out, add...)
	return append(out, lines[at:]...)
}

func rewriteLocal(text string, l LocalRename, version string) (string, int) {
	re := regexp.MustCompile(`(?m)^([ \t]*)` + regexp.QuoteMeta(l.Dep) + `[ \t]*=[ \t]*\{[^}]*\}`)
	decl := fmt.Sprintf("%s = { version = %s, package = %s, path = %s }",
		l.Dep, tomlString(version), tomlString(l.Alias), tomlString("../"+l.Alias))

	n := 0
	out := re.ReplaceAllStringFunc(text, func(match string) string {
		n++
		indent := re.FindStringSubmatch(match)[1]
		return indent + decl
	})
	return out, n
}

func rewriteWorkspace(text, name, snippet string) (string, int) {
	re := regexp.MustCompile(`(?m)^([ \t]*` + regexp.QuoteMeta(name) +
		`[ \t]*=[ \t]*\{[^}]*?)workspace\s*=\s*true([^}]*\})`)

	n := 0
	out := re.ReplaceAllStringFunc(text, func(match string) string {
		n++
		m := re.FindStringSubmatch(match)
		return m[1] + snippet + m[2]
	})
	return out, n
}

// inheritsUnsupported reports whether name still inherits from the
// workspace through a dotted key or a dedicated dependency table.
func inheritsUnsupported(text, name string) bool {
	q := regexp.QuoteMeta(name)
	dotted := regexp.MustCompile(`(?m)^[ \t]*` + q + `\.workspace\s*=\s*true`)
	table := regexp.MustCompile(`(?m)^[ \t]*\[(?:[^\]\n]*\.)?(?:dev-|build-)?dependencies\.` + q + `\]`)
	return dotted.MatchString(text) || table.MatchString(text)
}

func tomlString(s string) string {
	return `"` + tomlEscaper.Replace(s) + `"`
}
