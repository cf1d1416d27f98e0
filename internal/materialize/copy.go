// Package materialize produces overwritten copies of upstream package
// directories inside the vendored workspace.
package materialize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/u-root/u-root/pkg/cp"
)

// ErrNotDir is returned when the copy source is not a directory.
var ErrNotDir = errors.New("not a directory")

// FilesystemError reports a failed filesystem step while materializing.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Copy replaces dst with an exact recursive copy of src. Symlinks are
// copied as links and nothing is filtered out.
func Copy(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return &FilesystemError{Op: "stat", Path: src, Err: err}
	}
	if !info.IsDir() {
		return &FilesystemError{Op: "stat", Path: src, Err: ErrNotDir}
	}

	absSrc, err := filepath.Abs(src)
	if err != nil {
		return &FilesystemError{Op: "resolve", Path: src, Err: err}
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return &FilesystemError{Op: "resolve", Path: dst, Err: err}
	}
	if within(absDst, absSrc) {
		return &FilesystemError{Op: "copy", Path: dst, Err: fmt.Errorf("destination is inside source %s", src)}
	}
	if within(absSrc, absDst) {
		return &FilesystemError{Op: "copy", Path: dst, Err: fmt.Errorf("destination contains source %s", src)}
	}

	if err := os.RemoveAll(absDst); err != nil {
		return &FilesystemError{Op: "remove", Path: dst, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return &FilesystemError{Op: "mkdir", Path: filepath.Dir(dst), Err: err}
	}
	if err := cp.NoFollowSymlinks.CopyTree(absSrc, absDst); err != nil {
		return &FilesystemError{Op: "copy", Path: src, Err: err}
	}
	return nil
}

func within(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
