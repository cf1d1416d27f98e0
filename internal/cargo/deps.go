package cargo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

const workspaceDepsHeader = "[workspace.dependencies]"

var (
	// bareHeader matches a [table] or [[array]] header made of bare keys.
	bareHeader = regexp.MustCompile(`^\[\[?[A-Za-z0-9_.\- ]+\]\]?$`)
	// dottedHeader matches a header with quoted segments such as
	// [target.'cfg(unix)'.dependencies]. At least one dot is required so a
	// one-element array like ["x"] continued from a previous line is not
	// taken for a header.
	dottedHeader = regexp.MustCompile(`^\[\[?\s*` + headerKey + `(\s*\.\s*` + headerKey + `)+\s*\]\]?$`)
)

const headerKey = `(?:[A-Za-z0-9_-]+|"[^"]*"|'[^']*')`

// maxLineBytes bounds a single manifest line.
const maxLineBytes = 1 << 20

// maxEntryLines bounds how many lines a single dependency entry may span.
const maxEntryLines = 32

// Deps maps a workspace dependency name to its declaration snippet: either
// `version = "x"` or the contents of an inline table without its braces.
type Deps map[string]string

// Names returns the dependency names in sorted order.
func (d Deps) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type parseState int

const (
	awaitingSection parseState = iota
	awaitingEntry
	accumulatingEntry
)

// LoadWorkspaceDeps reads the [workspace.dependencies] table from the
// workspace manifest at path.
func LoadWorkspaceDeps(path string) (Deps, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is the upstream workspace manifest
	if err != nil {
		return nil, fmt.Errorf("reading workspace manifest: %w", err)
	}
	deps, err := ParseWorkspaceDeps(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return deps, nil
}

// ParseWorkspaceDeps extracts the [workspace.dependencies] table from a
// workspace manifest. A document without that section yields an empty table.
func ParseWorkspaceDeps(data []byte) (Deps, error) {
	deps := make(Deps)
	p := depsParser{deps: deps}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(sc.Text()))
		if line == "" {
			continue
		}
		done, err := p.feed(line, lineNo)
		if err != nil {
			return nil, err
		}
		if done {
			return deps, nil
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("scanning workspace manifest: line %d exceeds %d bytes: %w", lineNo+1, maxLineBytes, err)
		}
		return nil, fmt.Errorf("scanning workspace manifest: %w", err)
	}
	if p.state == accumulatingEntry {
		return nil, p.malformed("unterminated at end of file")
	}
	return deps, nil
}

type depsParser struct {
	deps    Deps
	state   parseState
	key     string
	buf     string
	start   int
	lines   int
	balance int
}

// feed consumes one non-blank, comment-free line. It reports done once the
// section has ended.
func (p *depsParser) feed(line string, lineNo int) (bool, error) {
	if strings.HasPrefix(line, workspaceDepsHeader) {
		if p.state == awaitingSection {
			p.state = awaitingEntry
		}
		return false, nil
	}

	switch p.state {
	case awaitingSection:
		return false, nil

	case awaitingEntry:
		if strings.HasPrefix(line, "[") {
			return true, nil
		}
		key, rest, ok := strings.Cut(line, "=")
		if !ok {
			return false, nil
		}
		p.key = strings.TrimSpace(key)
		p.buf = strings.TrimSpace(rest)
		p.start = lineNo
		p.lines = 1
		p.balance = braceBalance(p.buf)
		p.state = accumulatingEntry

	case accumulatingEntry:
		if isTableHeader(line) {
			return false, p.malformed("unterminated before next section")
		}
		p.lines++
		if p.lines > maxEntryLines {
			return false, p.malformed(fmt.Sprintf("spans more than %d lines", maxEntryLines))
		}
		p.buf += " " + line
		p.balance += braceBalance(line)
	}

	switch {
	case p.balance > 0:
		return false, nil
	case p.balance < 0:
		return false, p.malformed("unbalanced closing brace")
	}

	p.deps[p.key] = snippet(p.buf)
	p.key, p.buf = "", ""
	p.balance, p.lines = 0, 0
	p.state = awaitingEntry
	return false, nil
}

func (p *depsParser) malformed(reason string) error {
	return &MalformedSectionError{Key: p.key, Line: p.start, Reason: reason}
}

func snippet(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "{") {
		value = strings.TrimPrefix(value, "{")
		value = strings.TrimSuffix(value, "}")
		return strings.TrimSpace(value)
	}
	return "version = " + value
}

func isTableHeader(line string) bool {
	return bareHeader.MatchString(line) || dottedHeader.MatchString(line)
}

func braceBalance(s string) int {
	return strings.Count(s, "{") - strings.Count(s, "}")
}

// stripComment drops a trailing # comment that is not inside a basic
// ("...") or literal ('...') string. Only basic strings have escapes.
func stripComment(line string) string {
	var inBasic, inLiteral bool
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if inBasic {
				i++
			}
		case '"':
			if !inLiteral {
				inBasic = !inBasic
			}
		case '\'':
			if !inBasic {
				inLiteral = !inLiteral
			}
		case '#':
			if !inBasic && !inLiteral {
				return line[:i]
			}
		}
	}
	return line
}

// FormatWorkspaceDeps renders deps as a [workspace.dependencies] section
// that ParseWorkspaceDeps reads back into an equal table.
func FormatWorkspaceDeps(deps Deps) string {
	var b strings.Builder
	b.WriteString(workspaceDepsHeader + "\n")
	for _, name := range deps.Names() {
		s := deps[name]
		if s == "" {
			fmt.Fprintf(&b, "%s = {}\n", name)
			continue
		}
		fmt.Fprintf(&b, "%s = { %s }\n", name, s)
	}
	return b.String()
}
