package cmd

import (
	"github.com/spf13/cobra"

	"lakecat/internal/manifest"
)

var flagManifestPath string

var manifestEnvCmd = &cobra.Command{
	Use:   "manifest-env",
	Short: "Print a run manifest as shell variable assignments",
	Long: "Reads the run manifest JSON (from --manifest or MANIFEST_HOST) and prints\n" +
		"DUMP_MONTH, DUMP_DATE, RUN_MODE, and GIT_SHA as shell-quoted lines on\n" +
		"stdout, ready for eval in orchestration scripts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(flagManifestPath)
		if err != nil {
			return err
		}
		return m.WriteEnv(cmd.OutOrStdout())
	},
}

func init() {
	manifestEnvCmd.Flags().StringVar(&flagManifestPath, "manifest", "",
		"manifest file path (default: $MANIFEST_HOST)")
	rootCmd.AddCommand(manifestEnvCmd)
}
