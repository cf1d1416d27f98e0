package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cratesync",
		Short:         "Vendor and republish packages from an upstream Cargo workspace",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().String("root", ".", "Workspace root holding the plan, upstream tree and vendored crates")
	cmd.PersistentFlags().String("plan", "", "Sync plan file (default <root>/cratesync.yaml, else the built-in plan)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newInitCmd(),
		newPlanCmd(),
		newDepsCmd(),
		newSyncCmd(),
		newStatusCmd(),
		newPinCmd(),
		newVerifyCmd(),
		newBumpCmd(),
		newCleanCmd(),
		newDoctorCmd(),
	)

	return cmd
}
