package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigCmd manages the global connection settings.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change connection settings",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective API URL and where it comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flagURL, _ := cmd.Flags().GetString("api-url")
			apiURL, source := ResolveAPIURL(flagURL)

			path, err := GetConfigPath()
			if err != nil {
				return err
			}
			global, err := LoadGlobalConfig()
			if err != nil {
				return err
			}
			hasToken := global != nil && global.APIToken != ""

			if wantsJSON(cmd) {
				return printJSON(map[string]interface{}{
					"api_url":          apiURL,
					"api_url_source":   source,
					"config_path":      path,
					"token_configured": hasToken,
				})
			}
			fmt.Fprintf(stdout, "API URL:     %s (%s)\n", apiURL, source)
			fmt.Fprintf(stdout, "Config file: %s\n", path)
			fmt.Fprintf(stdout, "Token saved: %t\n", hasToken)
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <api-url|api-token> <value>",
		Short:     "Save a connection setting to the global config",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"api-url", "api-token"},
		RunE: func(cmd *cobra.Command, args []string) error {
			global, err := LoadGlobalConfig()
			if err != nil {
				return err
			}
			if global == nil {
				global = &GlobalConfig{}
			}

			switch args[0] {
			case "api-url":
				global.APIURL = args[1]
			case "api-token":
				global.APIToken = args[1]
			default:
				return fmt.Errorf("unknown setting %q (want api-url or api-token)", args[0])
			}

			if err := SaveGlobalConfig(global); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Saved %s.\n", args[0])
			return nil
		},
	}
}
