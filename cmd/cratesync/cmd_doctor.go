package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/OpenMined/libsignal-protocol-syft/internal/cargo"
	"github.com/OpenMined/libsignal-protocol-syft/internal/git"
	"github.com/OpenMined/libsignal-protocol-syft/internal/ui"
	"github.com/OpenMined/libsignal-protocol-syft/internal/workspace"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the plan and upstream tree are ready to sync",
		RunE:  runDoctor,
	}
}

type checker struct {
	out    io.Writer
	styles ui.Styles
	failed int
}

func (c *checker) pass(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, "%s %s\n", c.styles.OK.Render("[ok]  "), fmt.Sprintf(format, args...))
}

func (c *checker) warn(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, "%s %s\n", c.styles.Warn.Render("[warn]"), fmt.Sprintf(format, args...))
}

func (c *checker) fail(format string, args ...any) {
	c.failed++
	_, _ = fmt.Fprintf(c.out, "%s %s\n", c.styles.Fail.Render("[fail]"), fmt.Sprintf(format, args...))
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	c := &checker{out: out, styles: ui.StylesFor(out)}

	if v, err := git.Version(); err == nil {
		c.pass("%s", v)
	} else {
		c.warn("git not found; upstream commits will not be recorded")
	}

	ctx, _, err := loadWorkspace(cmd)
	if err != nil {
		c.fail("plan: %v", err)
		return doctorResult(c)
	}
	source := ctx.PlanPath
	if source == "" {
		source = "built-in plan"
	}
	c.pass("plan %s (%s, %d packages, target %s)", ctx.Plan.Name, source, len(ctx.Plan.Packages), ctx.Plan.TargetVersion)

	checkUpstreamTree(c, ctx)

	if ctx.Lock != nil && ctx.Lock.TargetVersion != ctx.Plan.TargetVersion {
		c.warn("lock file is for %s; run 'cratesync sync --update-lock'", ctx.Lock.TargetVersion)
	}

	return doctorResult(c)
}

func checkUpstreamTree(c *checker, ctx *workspace.Context) {
	upstream := ctx.UpstreamRoot()
	if info, err := os.Stat(upstream); err != nil || !info.IsDir() {
		c.fail("upstream %s not found", upstream)
		return
	}
	if git.IsRepo(upstream) {
		if commit, err := git.HeadCommit(upstream); err == nil {
			c.pass("upstream %s @ %s", ctx.Plan.Upstream, commit)
		}
		if dirty, err := git.IsDirty(upstream); err == nil && dirty {
			c.warn("upstream has uncommitted changes")
		}
	} else {
		c.warn("upstream %s is not a git checkout", ctx.Plan.Upstream)
	}

	deps, err := cargo.LoadWorkspaceDeps(ctx.WorkspaceManifestPath())
	switch {
	case err != nil:
		c.fail("workspace dependencies: %v", err)
	case len(deps) == 0:
		c.warn("no [workspace.dependencies] in %s", ctx.Plan.EffectiveWorkspaceManifest())
	default:
		c.pass("%d workspace dependencies", len(deps))
	}

	for _, pkg := range ctx.Plan.Packages {
		manifest := filepath.Join(ctx.SourceDir(pkg), workspace.ManifestFile)
		if _, err := os.Stat(manifest); err != nil {
			c.fail("%s: no %s in %s", pkg.Dest, workspace.ManifestFile, pkg.Source)
			continue
		}
		c.pass("%s <- %s", pkg.Dest, pkg.Source)
	}
}

func doctorResult(c *checker) error {
	if c.failed == 0 {
		_, _ = fmt.Fprintln(c.out, "\nAll checks passed.")
		return nil
	}
	_, _ = fmt.Fprintln(c.out, "\nSome checks failed. See above for details.")
	return fmt.Errorf("doctor: %d check(s) failed", c.failed)
}
