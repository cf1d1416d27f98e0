package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenMined/libsignal-protocol-syft/internal/plan"
	"github.com/OpenMined/libsignal-protocol-syft/internal/ui"
	verpkg "github.com/OpenMined/libsignal-protocol-syft/internal/version"
)

func newBumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bump [beta|patch|minor|major]",
		Short: "Compute the next target version (dry run unless --write)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBump,
	}
	cmd.Flags().Bool("remove-beta", false, "Drop the -beta.N suffix instead of starting or advancing a beta")
	cmd.Flags().String("from", "", "Version to bump (default: the plan's target_version)")
	cmd.Flags().Bool("all", false, "Show every bump scenario instead of a single one")
	cmd.Flags().Bool("write", false, "Store the new version as target_version in the plan file")
	return cmd
}

func runBump(cmd *cobra.Command, args []string) error {
	removeBeta, _ := cmd.Flags().GetBool("remove-beta")
	from, _ := cmd.Flags().GetString("from")
	all, _ := cmd.Flags().GetBool("all")
	write, _ := cmd.Flags().GetBool("write")

	ctx, _, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	current := from
	if current == "" {
		current = ctx.Plan.TargetVersion
	}
	out := cmd.OutOrStdout()

	if all {
		if write || len(args) > 0 {
			return fmt.Errorf("--all cannot be combined with a bump kind or --write")
		}
		return printBumpScenarios(cmd, current)
	}

	kind, err := bumpKind(args)
	if err != nil {
		return err
	}
	next, err := verpkg.Bump(current, kind, removeBeta)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Current version: %s\n", current)
	_, _ = fmt.Fprintf(out, "Bump type: %s\n", kind)
	_, _ = fmt.Fprintf(out, "Remove beta: %t\n", removeBeta)
	_, _ = fmt.Fprintf(out, "New version: %s\n", next)

	if !write {
		return nil
	}
	if ctx.PlanPath == "" {
		return fmt.Errorf("--write needs a plan file; run 'cratesync init' first")
	}
	data, err := os.ReadFile(ctx.PlanPath)
	if err != nil {
		return fmt.Errorf("reading plan: %w", err)
	}
	updated, err := plan.SetTargetVersion(data, next)
	if err != nil {
		return err
	}
	if err := os.WriteFile(ctx.PlanPath, updated, 0644); err != nil { //nolint:gosec // plan file needs to be readable
		return fmt.Errorf("writing plan: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Updated target_version in %s\n", ctx.PlanPath)
	return nil
}

// bumpKind takes the kind from args, or asks for it on a terminal.
func bumpKind(args []string) (verpkg.Kind, error) {
	if len(args) == 1 {
		return verpkg.ParseKind(args[0])
	}
	if !ui.IsTerminal(os.Stdin) {
		return "", fmt.Errorf("bump kind required (beta, patch, minor, or major)")
	}
	raw, err := promptInput("Bump type", "beta, patch, minor or major", bumpKindValidator)
	if err != nil {
		return "", err
	}
	return verpkg.ParseKind(raw)
}

func printBumpScenarios(cmd *cobra.Command, current string) error {
	out := cmd.OutOrStdout()
	if _, err := verpkg.Parse(current); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Current version: %s\n\n", current)

	tbl := ui.NewTable(out, "BUMP", "REMOVE BETA", "NEW VERSION")
	for _, kind := range verpkg.Kinds {
		for _, removeBeta := range []bool{false, true} {
			next, err := verpkg.Bump(current, kind, removeBeta)
			if err != nil {
				return err
			}
			tbl.Row(string(kind), removeBeta, next)
		}
	}
	return tbl.Flush()
}
