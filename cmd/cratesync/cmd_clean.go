package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove vendored packages (destructive, requires --force)",
		RunE:  runClean,
	}
	cmd.Flags().Bool("force", false, "Required to confirm destructive operation")
	return cmd
}

func runClean(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")
	if !force {
		return fmt.Errorf("clean is destructive; pass --force to confirm")
	}

	ctx, _, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	if ctx.DestRoot() == ctx.Root {
		return fmt.Errorf("refusing to clean: dest resolves to the workspace root %s", ctx.Root)
	}

	out := cmd.OutOrStdout()
	removed := 0
	for _, pkg := range ctx.Plan.Packages {
		dir := ctx.PackageDir(pkg)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", pkg.Dest, err)
		}
		removed++
		_, _ = fmt.Fprintf(out, "Removed %s\n", dir)
	}

	_, _ = fmt.Fprintf(out, "%d vendored package(s) removed.\n", removed)
	return nil
}
