package cmd

import (
	"github.com/spf13/cobra"

	"lakecat/internal/kpi"
	"lakecat/internal/registry"
)

var (
	flagKPIName          string
	flagStrict           bool
	flagKPISchemaVersion int64
)

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Compute and append KPIs for every registered run",
	Long: "Evaluates the KPI dictionary against each run whose latest registry\n" +
		"status is ok, then derives the basis-point ratios from the same pass.\n" +
		"Failed queries are recorded as failed_query events and, outside strict\n" +
		"mode, do not stop the sweep.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := buildEnv()
		if err != nil {
			return err
		}

		opts := kpi.Options{
			IncludeActive: flagIncludeActive,
			OnlyRunID:     flagOnlyRun,
			OnlyKPI:       flagKPIName,
			Strict:        flagStrict,
			SchemaVersion: flagKPISchemaVersion,
		}
		if !cmd.Flags().Changed("schema-version") {
			opts.SchemaVersion = env.cfg.Provenance.SchemaVersion
		}

		eng := kpi.NewEngine(env.gw, env.paths, registry.NewLog(env.gw, env.paths), env.out)
		return eng.ComputeForRuns(cmd.Context(), opts)
	},
}

func init() {
	f := kpiCmd.Flags()
	f.BoolVar(&flagIncludeActive, "include-active", false,
		"also compute KPIs for the run the active pointer targets")
	f.StringVar(&flagOnlyRun, "only-run-id", "", "restrict the sweep to one run id")
	f.StringVar(&flagKPIName, "kpi", "", "compute only this base KPI (suppresses derived KPIs)")
	f.BoolVar(&flagStrict, "strict", false, "abort the sweep on the first failed query")
	f.Int64Var(&flagKPISchemaVersion, "schema-version", 1, "schema version stamped on events")
	rootCmd.AddCommand(kpiCmd)
}
