package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/OpenMined/libsignal-protocol-syft/internal/git"
	"github.com/OpenMined/libsignal-protocol-syft/internal/lock"
	"github.com/OpenMined/libsignal-protocol-syft/internal/plan"
	"github.com/OpenMined/libsignal-protocol-syft/internal/syncer"
	"github.com/OpenMined/libsignal-protocol-syft/internal/ui"
	"github.com/OpenMined/libsignal-protocol-syft/internal/workspace"
)

var errCancelled = errors.New("sync cancelled")

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy planned packages from upstream and patch their manifests",
		RunE:  runSync,
	}
	cmd.Flags().StringSlice("only", nil, "Sync only these packages (by dest name)")
	cmd.Flags().StringSlice("skip", nil, "Skip these packages (by dest name)")
	cmd.Flags().BoolP("yes", "y", false, "Overwrite vendored packages without asking")
	cmd.Flags().Bool("no-verify", false, "Skip decoding and checking the patched manifests")
	cmd.Flags().Bool("update-lock", false, "Record the synced packages in the lock file")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	only, _ := cmd.Flags().GetStringSlice("only")
	skip, _ := cmd.Flags().GetStringSlice("skip")
	yes, _ := cmd.Flags().GetBool("yes")
	noVerify, _ := cmd.Flags().GetBool("no-verify")
	updateLock, _ := cmd.Flags().GetBool("update-lock")

	ctx, logger, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}

	pkgs, err := selectPackages(ctx.Plan, only, skip)
	if err != nil {
		return err
	}

	if !yes && ui.IsTerminal(os.Stdin) {
		if existing := vendoredDests(ctx, pkgs); len(existing) > 0 {
			ok, err := promptConfirm(fmt.Sprintf("Overwrite %s under %s?", strings.Join(existing, ", "), ctx.Plan.Dest))
			if err != nil {
				return err
			}
			if !ok {
				return errCancelled
			}
		}
	}

	checkUpstream(ctx, logger)

	progress := ui.NewProgress(cmd.ErrOrStderr(), len(pkgs))
	res, err := syncer.Run(syncer.Options{
		UpstreamRoot:      ctx.UpstreamRoot(),
		WorkspaceManifest: ctx.WorkspaceManifestPath(),
		DestRoot:          ctx.DestRoot(),
		Version:           ctx.Plan.TargetVersion,
		Packages:          pkgs,
		Verify:            !noVerify,
		Logger:            logger,
		Reporter:          progress,
		Stdout:            cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if updateLock {
		if err := writeLock(ctx, res.Packages, logger); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, "Lock file updated.")
	}

	ui.Summary(out, fmt.Sprintf("Synced %s crates:", ctx.Plan.Name), res.Names())
	return nil
}

// selectPackages applies --only/--skip, rejecting names the plan does not
// declare.
func selectPackages(p *plan.Plan, only, skip []string) ([]plan.Package, error) {
	if unknown := plan.UnknownDests(p.Packages, append(append([]string{}, only...), skip...)); len(unknown) > 0 {
		return nil, fmt.Errorf("unknown package(s): %s", strings.Join(unknown, ", "))
	}
	pkgs := plan.FilterPackages(p.Packages, only, skip)
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages selected")
	}
	return pkgs, nil
}

func vendoredDests(ctx *workspace.Context, pkgs []plan.Package) []string {
	var names []string
	for _, pkg := range pkgs {
		if _, err := os.Stat(ctx.PackageDir(pkg)); err == nil {
			names = append(names, pkg.Dest)
		}
	}
	return names
}

// checkUpstream warns about conditions that make a sync hard to reproduce.
func checkUpstream(ctx *workspace.Context, logger *log.Logger) {
	dir := ctx.UpstreamRoot()
	if !git.IsRepo(dir) {
		logger.Debug("upstream is not a git checkout", "dir", dir)
		return
	}
	if dirty, err := git.IsDirty(dir); err == nil && dirty {
		logger.Warn("upstream checkout has uncommitted changes", "dir", dir)
	}
}

func upstreamCommit(ctx *workspace.Context) string {
	dir := ctx.UpstreamRoot()
	if !git.IsGitInstalled() || !git.IsRepo(dir) {
		return ""
	}
	commit, err := git.HeadCommitFull(dir)
	if err != nil {
		return ""
	}
	return commit
}

func newLockFile(ctx *workspace.Context) *lock.File {
	return &lock.File{
		Version:        1,
		Name:           ctx.Plan.Name,
		GeneratedAt:    time.Now().Format(time.RFC3339),
		ToolVersion:    version,
		TargetVersion:  ctx.Plan.TargetVersion,
		UpstreamCommit: upstreamCommit(ctx),
		Packages:       make(map[string]*lock.Package),
	}
}

// writeLock records synced packages, keeping entries of packages that were
// not part of this run when the existing lock is for the same target.
func writeLock(ctx *workspace.Context, synced []syncer.PackageResult, logger *log.Logger) error {
	lf := newLockFile(ctx)
	if prev := ctx.Lock; prev != nil && prev.TargetVersion == lf.TargetVersion {
		for name, pkg := range prev.Packages {
			lf.Packages[name] = pkg
		}
	}
	for _, res := range synced {
		lf.Packages[res.Name] = &lock.Package{
			Source:         res.Source,
			Version:        ctx.Plan.TargetVersion,
			ManifestSHA256: res.ManifestSHA256,
		}
	}
	logger.Debug("writing lock file", "path", ctx.LockPath, "packages", len(lf.Packages))
	return lock.Save(ctx.LockPath, lf)
}
