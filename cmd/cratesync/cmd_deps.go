package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenMined/libsignal-protocol-syft/internal/cargo"
	"github.com/OpenMined/libsignal-protocol-syft/internal/ui"
)

func newDepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Show the upstream [workspace.dependencies] table as sync sees it",
		RunE:  runDeps,
	}
	cmd.Flags().String("format", "table", "Output format: table or toml")
	return cmd
}

func runDeps(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "toml" {
		return fmt.Errorf("unknown format %q (must be table or toml)", format)
	}

	ctx, logger, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}

	path := ctx.WorkspaceManifestPath()
	deps, err := cargo.LoadWorkspaceDeps(path)
	if err != nil {
		return err
	}
	if len(deps) == 0 {
		logger.Warn("no [workspace.dependencies] entries found", "manifest", path)
	}

	out := cmd.OutOrStdout()
	if format == "toml" {
		_, _ = fmt.Fprint(out, cargo.FormatWorkspaceDeps(deps))
		return nil
	}

	tbl := ui.NewTable(out, "NAME", "DECLARATION")
	for _, name := range deps.Names() {
		tbl.Row(name, "{ "+deps[name]+" }")
	}
	return tbl.Flush()
}
