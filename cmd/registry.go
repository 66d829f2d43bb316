package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lakecat/internal/gitrev"
	"lakecat/internal/registry"
)

var (
	flagAction        string
	flagSchemaVersion int64
	flagDumpMonth     string
	flagDumpDate      string
	flagRunMode       string
	flagGitSHA        string
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Append the current state of every run to the registry event log",
	Long: "Classifies each run directory (ok, skipped_active, missing_data,\n" +
		"failed_incomplete) and appends one immutable event per run. History is\n" +
		"never rewritten; the latest view projects current state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := buildEnv()
		if err != nil {
			return err
		}

		opts := registry.UpdateOptions{
			IncludeActive: flagIncludeActive,
			OnlyRunID:     flagOnlyRun,
			Action:        flagAction,
			SchemaVersion: flagSchemaVersion,
			DumpMonth:     flagDumpMonth,
			DumpDate:      flagDumpDate,
			RunMode:       firstNonEmpty(flagRunMode, viper.GetString("provenance.run_mode"), env.cfg.Provenance.RunMode),
			GitSHA:        firstNonEmpty(flagGitSHA, gitrev.HeadSHA("")),
		}
		if !cmd.Flags().Changed("schema-version") {
			opts.SchemaVersion = env.cfg.Provenance.SchemaVersion
		}

		log := registry.NewLog(env.gw, env.paths)
		return log.UpdateSweep(cmd.Context(), opts, env.out)
	},
}

func init() {
	f := registryCmd.Flags()
	f.BoolVar(&flagIncludeActive, "include-active", false,
		"also record the run the active pointer targets")
	f.StringVar(&flagOnlyRun, "only-run-id", "", "restrict the sweep to one run id")
	f.StringVar(&flagAction, "action", "update_registry", "action field stamped on events")
	f.Int64Var(&flagSchemaVersion, "schema-version", 1, "schema version stamped on events")
	f.StringVar(&flagDumpMonth, "dump-month", "", "dump month (YYYY-MM) stamped on events")
	f.StringVar(&flagDumpDate, "dump-date", "", "dump date (YYYYMMDD) stamped on events")
	f.StringVar(&flagRunMode, "run-mode", "", "run mode stamped on events")
	f.StringVar(&flagGitSHA, "git-sha", "", "commit stamped on events (default: HEAD of the working tree)")
	rootCmd.AddCommand(registryCmd)
}
