package cmd

import (
	"github.com/spf13/cobra"

	"lakecat/internal/registrar"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Register every complete run as a catalog schema",
	Long: "Walks the lake's run directories in ascending order and idempotently\n" +
		"creates the per-run schema, typed tables, and views for each complete run.\n" +
		"The first failure stops the sweep.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := buildEnv()
		if err != nil {
			return err
		}
		r := registrar.New(env.gw, env.paths, env.out)
		return r.Reconcile(cmd.Context(), registrar.Options{
			IncludeActive: flagIncludeActive,
			OnlyRunID:     flagOnlyRun,
		})
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&flagIncludeActive, "include-active", false,
		"also process the run the active pointer targets")
	reconcileCmd.Flags().StringVar(&flagOnlyRun, "only-run-id", "",
		"restrict the sweep to one run id")
	rootCmd.AddCommand(reconcileCmd)
}
