package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"lakecat/internal/config"
	"lakecat/internal/gateway"
	"lakecat/internal/lake"
	"lakecat/internal/sanity"
	"lakecat/internal/ui"
)

var (
	flagSanityRoot     string
	flagSanityFast     bool
	flagStrictLabelIDs bool
)

var sanityCmd = &cobra.Command{
	Use:   "sanity",
	Short: "Validate the parquet files of one run",
	Long: "Checks a run directory without touching the catalog: dataset layout,\n" +
		"column presence, row floors, key integrity, and cross-dataset references.\n" +
		"Defaults to the run the active pointer targets. Reads parquet through a\n" +
		"local duckdb binary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		root := flagSanityRoot
		if root == "" {
			lakeRoot := firstNonEmpty(flagLakeRoot, cfg.Lake.Root)
			if lakeRoot == "" {
				lakeRoot, err = lake.RootFromEnv()
				if err != nil {
					return err
				}
			}
			root = filepath.Join(lakeRoot, "active")
		}

		gw := gateway.NewDuckDBGateway(duckDBBin(cfg))
		v := sanity.New(gw, ui.NewSweep())
		return v.Run(cmd.Context(), sanity.Options{
			Root:           root,
			Fast:           flagSanityFast,
			StrictLabelIDs: flagStrictLabelIDs,
		})
	},
}

func init() {
	f := sanityCmd.Flags()
	f.StringVar(&flagSanityRoot, "root", "", "run directory to validate (default: <lake>/active)")
	f.BoolVar(&flagSanityFast, "fast", false, "skip the cross-dataset joins, keep the essentials")
	f.BoolVar(&flagStrictLabelIDs, "strict-label-ids", false, "fail on duplicated labels_v10.label_id")
	rootCmd.AddCommand(sanityCmd)
}
