package client

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ConfigCmd creates the config command group.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the client configuration",
	}

	cmd.AddCommand(configSetURLCmd())
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configResetCmd())

	return cmd
}

func configSetURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-url <url>",
		Short: "Save the API base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithConfig(args[0])
			if err != nil {
				return err
			}
			if err := SaveGlobalConfig(&GlobalConfig{APIURL: api.BaseURL()}); err != nil {
				return err
			}
			path, _ := GetConfigPath()
			fmt.Fprintf(cmd.OutOrStdout(), "Saved API URL %s to %s\n", api.BaseURL(), path)
			return nil
		},
	}
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the API URL in use and where it came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, apiURL, err := resolveURLSource(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API URL: %s (%s)\n", apiURL, source)
			return nil
		},
	}
}

func configResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove the saved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration removed.")
			return nil
		},
	}
}

// URLSource names where the API URL came from.
type URLSource string

const (
	SourceFlag         URLSource = "flag"
	SourceEnv          URLSource = "env"
	SourceGlobalConfig URLSource = "global_config"
	SourceDefault      URLSource = "default"
)

func resolveURLSource(cmd *cobra.Command) (URLSource, string, error) {
	if flagURL, err := cmd.Flags().GetString("api-url"); err == nil && flagURL != "" {
		return SourceFlag, flagURL, nil
	}
	if envURL := os.Getenv(envAPIURL); envURL != "" {
		return SourceEnv, envURL, nil
	}
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return "", "", err
	}
	if cfg != nil && cfg.APIURL != "" {
		return SourceGlobalConfig, cfg.APIURL, nil
	}
	return SourceDefault, defaultAPIURL, nil
}
