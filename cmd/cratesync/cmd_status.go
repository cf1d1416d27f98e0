package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenMined/libsignal-protocol-syft/internal/plan"
	"github.com/OpenMined/libsignal-protocol-syft/internal/syncer"
	"github.com/OpenMined/libsignal-protocol-syft/internal/ui"
	"github.com/OpenMined/libsignal-protocol-syft/internal/workspace"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show vendored packages and whether they match the lock file",
		RunE:  runStatus,
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

// Lock states reported by status.
const (
	lockMatch    = "ok"
	lockModified = "modified"
	lockStale    = "stale"
	lockMissing  = "unlocked"
)

type packageStatus struct {
	Dest     string `json:"dest"`
	Vendored bool   `json:"vendored"`
	Version  string `json:"version,omitempty"`
	Lock     string `json:"lock,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, _, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}

	statuses := make([]packageStatus, 0, len(ctx.Plan.Packages))
	for _, pkg := range ctx.Plan.Packages {
		statuses = append(statuses, collectStatus(ctx, pkg))
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	tbl := ui.NewTable(out, "PACKAGE", "VENDORED", "VERSION", "LOCK")
	for _, s := range statuses {
		tbl.Row(s.Dest, s.Vendored, s.Version, s.Lock)
	}
	return tbl.Flush()
}

func collectStatus(ctx *workspace.Context, pkg plan.Package) packageStatus {
	s := packageStatus{Dest: pkg.Dest}
	manifest := ctx.ManifestPath(pkg)
	if _, err := os.Stat(manifest); err != nil {
		return s
	}
	s.Vendored = true

	if ctx.Lock == nil {
		s.Lock = lockMissing
		return s
	}
	lp, ok := ctx.Lock.Packages[pkg.Dest]
	if !ok {
		s.Lock = lockMissing
		return s
	}
	s.Version = lp.Version

	digest, err := syncer.ManifestDigest(manifest)
	switch {
	case err != nil || digest != lp.ManifestSHA256:
		s.Lock = lockModified
	case lp.Version != ctx.Plan.TargetVersion:
		s.Lock = lockStale
	default:
		s.Lock = lockMatch
	}
	return s
}
