package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitCmd creates the init command.
func InitCmd() *cobra.Command {
	var (
		apiKey string
		apiURL string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Save API credentials to the global config",
		Long: `Validates the given credentials against the server and stores them in
the user config directory for later commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(apiKey, apiURL)
		},
	}

	cmd.Flags().StringVar(&apiKey, "key", "", "API key")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API base URL")

	return cmd
}

func runInit(apiKey, apiURL string) error {
	api, err := NewAPIClientWithConfig(apiKey, apiURL)
	if err != nil {
		return err
	}

	// /health is open; /folders exercises auth when a key is configured.
	if _, err := api.Get("/folders"); err != nil {
		return fmt.Errorf("failed to reach server at %s: %w", apiURL, err)
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIKey: apiKey, APIURL: apiURL}); err != nil {
		return err
	}

	configPath, _ := GetConfigPath()
	fmt.Printf("Credentials saved to %s\n", configPath)
	return nil
}
