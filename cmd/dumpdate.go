package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"lakecat/internal/probe"
)

var (
	flagDumpMonthProbe string
	flagProbeType      string
)

var dumpDateCmd = &cobra.Command{
	Use:   "dump-date",
	Short: "Find the newest published dump date of a month",
	Long: "Walks the given month backwards day by day, HEAD-probing the public dump\n" +
		"bucket, and prints the newest existing YYYYMMDD on stdout. Exits 2 when the\n" +
		"month has no dump.",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := probe.NewFinder()
		ymd, err := f.FindDumpDate(cmd.Context(), flagDumpMonthProbe, flagProbeType)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ymd)
		return nil
	},
}

func init() {
	f := dumpDateCmd.Flags()
	f.StringVar(&flagDumpMonthProbe, "month", "", "month to probe, YYYY-MM")
	f.StringVar(&flagProbeType, "probe-type", "artists", "dump type used for probing")
	_ = dumpDateCmd.MarkFlagRequired("month")
	rootCmd.AddCommand(dumpDateCmd)
}
