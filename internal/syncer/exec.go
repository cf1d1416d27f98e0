package syncer

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/OpenMined/libsignal-protocol-syft/internal/plan"
)

func runPostSync(pkgDir string, commands []plan.PostSync, opts Options) error {
	for _, ps := range commands {
		opts.Reporter.Log("  Running post_sync: %s", ps.Name)
		if err := execCmd(pkgDir, ps, opts); err != nil {
			return fmt.Errorf("post_sync %q: %w", ps.Name, err)
		}
	}
	return nil
}

// execCmd runs a post_sync command safely (no shell expansion).
func execCmd(pkgDir string, ps plan.PostSync, opts Options) error {
	if len(ps.Cmd) == 0 {
		return fmt.Errorf("empty cmd")
	}

	dir := pkgDir
	if ps.WorkDir != "" {
		dir = filepath.Join(pkgDir, ps.WorkDir)
	}

	cmd := exec.Command(ps.Cmd[0], ps.Cmd[1:]...) //nolint:gosec // commands come from the sync plan
	cmd.Dir = dir
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stdout
	return cmd.Run()
}
