package cmd

import (
	"github.com/spf13/cobra"

	"lakecat/internal/export"
	"lakecat/internal/registry"
)

var (
	flagOutDir        string
	flagWithTimestamp bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the latest KPI state as long and wide CSV reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := buildEnv()
		if err != nil {
			return err
		}

		opts := export.Options{
			IncludeActive: flagIncludeActive,
			OnlyRunID:     flagOnlyRun,
			OutDir:        firstNonEmpty(flagOutDir, env.cfg.Export.OutDir),
			WithTimestamp: flagWithTimestamp || env.cfg.Export.WithTimestamp,
		}

		e := export.New(env.gw, env.paths, registry.NewLog(env.gw, env.paths), env.out)
		return e.Run(cmd.Context(), opts)
	},
}

func init() {
	f := exportCmd.Flags()
	f.BoolVar(&flagIncludeActive, "include-active", false,
		"also export the run the active pointer targets")
	f.StringVar(&flagOnlyRun, "only-run-id", "", "restrict the export to one run id")
	f.StringVar(&flagOutDir, "out-dir", "", "report directory (default: <lake>/_meta/discogs_history/reports)")
	f.BoolVar(&flagWithTimestamp, "with-timestamp", false, "suffix report filenames with the export time")
	rootCmd.AddCommand(exportCmd)
}
