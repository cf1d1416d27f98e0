package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenMined/libsignal-protocol-syft/internal/lock"
	"github.com/OpenMined/libsignal-protocol-syft/internal/syncer"
)

func newPinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin",
		Short: "Record the current vendored manifests in the lock file",
		RunE:  runPin,
	}
}

func runPin(cmd *cobra.Command, _ []string) error {
	ctx, _, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	lf := newLockFile(ctx)
	for _, pkg := range ctx.Plan.Packages {
		manifest := ctx.ManifestPath(pkg)
		if _, err := os.Stat(manifest); err != nil {
			_, _ = fmt.Fprintf(out, "Skipping %s (not vendored)\n", pkg.Dest)
			continue
		}
		digest, err := syncer.ManifestDigest(manifest)
		if err != nil {
			return fmt.Errorf("reading manifest for %s: %w", pkg.Dest, err)
		}
		lf.Packages[pkg.Dest] = &lock.Package{
			Source:         pkg.Source,
			Version:        ctx.Plan.TargetVersion,
			ManifestSHA256: digest,
		}
		_, _ = fmt.Fprintf(out, "Pinned %s @ %s\n", pkg.Dest, digest[:12])
	}

	if len(lf.Packages) == 0 {
		return fmt.Errorf("nothing to pin: no package under %s is vendored", ctx.Plan.Dest)
	}
	if err := lock.Save(ctx.LockPath, lf); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Lock file written to %s\n", ctx.LockPath)
	return nil
}
