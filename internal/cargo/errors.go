package cargo

import "fmt"

// MissingFieldError reports a required field or dependency that is absent
// from a manifest.
type MissingFieldError struct {
	Manifest string
	Field    string
}

func (e *MissingFieldError) Error() string {
	if e.Manifest == "" {
		return fmt.Sprintf("manifest: missing %s", e.Field)
	}
	return fmt.Sprintf("%s: missing %s", e.Manifest, e.Field)
}

// MalformedSectionError reports an entry of [workspace.dependencies] that
// could not be closed, usually because of unbalanced braces.
type MalformedSectionError struct {
	Key    string
	Line   int
	Reason string
}

func (e *MalformedSectionError) Error() string {
	return fmt.Sprintf("workspace dependencies: entry %q (line %d): %s", e.Key, e.Line, e.Reason)
}
