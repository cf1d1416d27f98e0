package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenMined/libsignal-protocol-syft/internal/cargo"
	"github.com/OpenMined/libsignal-protocol-syft/internal/ui"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Decode every vendored manifest and check it against the plan",
		RunE:  runVerify,
	}
}

func runVerify(cmd *cobra.Command, _ []string) error {
	ctx, logger, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	styles := ui.StylesFor(out)

	failed := 0
	tbl := ui.NewTable(out, "PACKAGE", "RESULT", "INHERITED")
	for _, pkg := range ctx.Plan.Packages {
		manifest := ctx.ManifestPath(pkg)
		data, err := os.ReadFile(manifest) //nolint:gosec // path is a vendored manifest
		if err != nil {
			failed++
			tbl.Row(pkg.Dest, styles.Fail.Render("not vendored"), "")
			continue
		}
		findings, err := cargo.Verify(data, cargo.Expect{
			Name:    pkg.Dest,
			Version: ctx.Plan.TargetVersion,
			Locals:  pkg.Locals,
		})
		if err != nil {
			failed++
			logger.Error("verification failed", "manifest", manifest, "err", err)
			tbl.Row(pkg.Dest, styles.Fail.Render("FAIL"), "")
			continue
		}
		tbl.Row(pkg.Dest, styles.OK.Render("ok"), strings.Join(findings.Inherited, ", "))
	}
	if err := tbl.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d package(s) failed verification", failed, len(ctx.Plan.Packages))
	}
	return nil
}
