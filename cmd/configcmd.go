package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"lakecat/internal/config"
	"lakecat/internal/security"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the lakecat configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.Exists() {
			return fmt.Errorf("config file already exists at %s", config.GetConfigFile())
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", config.GetConfigFile())
		return nil
	},
}

var configPasswordCmd = &cobra.Command{
	Use:   "set-password <user>",
	Short: "Store the engine password for a user in the OS keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var secret string
		prompt := &survey.Password{Message: fmt.Sprintf("Password for %s:", args[0])}
		if err := survey.AskOne(prompt, &secret, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		if err := security.StorePassword(args[0], secret); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "stored")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPasswordCmd)
	rootCmd.AddCommand(configCmd)
}
