package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenMined/libsignal-protocol-syft/internal/ui"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the packages that sync would vendor, in order",
		RunE:  runPlan,
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

type planView struct {
	Name          string        `json:"name"`
	Source        string        `json:"source"`
	Upstream      string        `json:"upstream"`
	Dest          string        `json:"dest"`
	TargetVersion string        `json:"target_version"`
	Packages      []packageView `json:"packages"`
}

type packageView struct {
	Source      string            `json:"source"`
	Dest        string            `json:"dest"`
	Description string            `json:"description"`
	Locals      map[string]string `json:"locals,omitempty"`
	PostSync    int               `json:"post_sync,omitempty"`
}

func runPlan(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, _, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}

	p := ctx.Plan
	view := planView{
		Name:          p.Name,
		Source:        ctx.PlanPath,
		Upstream:      p.Upstream,
		Dest:          p.Dest,
		TargetVersion: p.TargetVersion,
		Packages:      make([]packageView, 0, len(p.Packages)),
	}
	if view.Source == "" {
		view.Source = "built-in"
	}
	for _, pkg := range p.Packages {
		pv := packageView{
			Source:      pkg.Source,
			Dest:        pkg.Dest,
			Description: pkg.Description,
			PostSync:    len(pkg.PostSync),
		}
		if len(pkg.Locals) > 0 {
			pv.Locals = make(map[string]string, len(pkg.Locals))
			for _, l := range pkg.Locals {
				pv.Locals[l.Dep] = l.Alias
			}
		}
		view.Packages = append(view.Packages, pv)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	_, _ = fmt.Fprintf(out, "Plan %s (%s): %s -> %s @ %s\n\n", view.Name, view.Source, view.Upstream, view.Dest, view.TargetVersion)
	tbl := ui.NewTable(out, "#", "DEST", "SOURCE", "LOCALS")
	for i, pkg := range p.Packages {
		locals := make([]string, len(pkg.Locals))
		for j, l := range pkg.Locals {
			locals[j] = l.Dep + "->" + l.Alias
		}
		tbl.Row(i+1, pkg.Dest, pkg.Source, strings.Join(locals, ", "))
	}
	return tbl.Flush()
}
