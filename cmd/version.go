package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"lakecat/internal/gitrev"
)

var (
	// Version is set at build time
	Version = "dev"
	// BuildTime is set at build time
	BuildTime = "unknown"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display lakecat version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lakecat version %s\n", Version)
		fmt.Printf("Built at: %s\n", BuildTime)
		if sha := gitrev.ShortSHA(""); sha != "" {
			fmt.Printf("Commit: %s\n", sha)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
