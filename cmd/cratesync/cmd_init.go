package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/OpenMined/libsignal-protocol-syft/internal/plan"
	"github.com/OpenMined/libsignal-protocol-syft/internal/workspace"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the built-in sync plan to cratesync.yaml for editing",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing plan file")
	cmd.Flags().String("upstream", "", "Override the upstream checkout directory")
	cmd.Flags().String("dest", "", "Override the directory vendored packages are written to")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")
	upstream, _ := cmd.Flags().GetString("upstream")
	dest, _ := cmd.Flags().GetString("dest")

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	path := s.Plan
	if path == "" {
		path = filepath.Join(s.Root, workspace.PlanFile)
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("plan %s already exists (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil { //nolint:gosec // workspace dir needs to be world-readable
		return fmt.Errorf("creating plan directory: %w", err)
	}
	if err := writeInitialPlan(path, upstream, dest); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Plan written to %s\n", path)
	return nil
}

// writeInitialPlan writes the built-in plan verbatim, or re-encoded with
// the given overrides applied.
func writeInitialPlan(path, upstream, dest string) error {
	if upstream == "" && dest == "" {
		if err := os.WriteFile(path, plan.DefaultData(), 0644); err != nil { //nolint:gosec // plan file needs to be readable
			return fmt.Errorf("writing plan: %w", err)
		}
		return nil
	}

	p, err := plan.Default()
	if err != nil {
		return err
	}
	if upstream != "" {
		p.Upstream = upstream
	}
	if dest != "" {
		p.Dest = dest
	}
	return plan.Save(path, p)
}
