package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"netsim/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or replace the daemon's impairment settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the daemon's current settings as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		c := client()
		resp, err := c.GetSettings(context.Background())
		if err != nil {
			exitWithError("failed to get settings", err)
		}
		checkResponseError("get_settings", resp)
		printJSON(resp.Result)
	},
}

var settingsFile string

var settingsUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Replace the daemon's settings wholesale from a JSON file",
	Long:  "Reads a settings.Settings JSON document from --file and sends it as a full replacement.",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(settingsFile)
		if err != nil {
			exitWithError("failed to read settings file", err)
		}
		var s settings.Settings
		if err := json.Unmarshal(data, &s); err != nil {
			exitWithError("failed to parse settings file", err)
		}

		c := client()
		resp, err := c.UpdateSettings(context.Background(), s)
		if err != nil {
			exitWithError("failed to update settings", err)
		}
		checkResponseError("update_settings", resp)
		fmt.Println("Settings updated.")
	},
}

func init() {
	settingsUpdateCmd.Flags().StringVarP(&settingsFile, "file", "f", "", "path to a settings.Settings JSON document")
	settingsUpdateCmd.MarkFlagRequired("file")

	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsUpdateCmd)
	rootCmd.AddCommand(settingsCmd)
}
