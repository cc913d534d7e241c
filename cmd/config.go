package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Save, load, list, and delete settings profiles",
}

var configSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the daemon's current settings under a profile name",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := client()
		resp, err := c.SaveConfig(context.Background(), args[0])
		if err != nil {
			exitWithError("failed to save config", err)
		}
		checkResponseError("save_config", resp)
		fmt.Printf("Saved profile %q.\n", args[0])
	},
}

var configLoadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Load a saved profile and apply it as the daemon's settings",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := client()
		resp, err := c.LoadConfig(context.Background(), args[0])
		if err != nil {
			exitWithError("failed to load config", err)
		}
		checkResponseError("load_config", resp)
		fmt.Printf("Loaded profile %q.\n", args[0])
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profile names",
	Run: func(cmd *cobra.Command, args []string) {
		c := client()
		resp, err := c.ListConfigs(context.Background())
		if err != nil {
			exitWithError("failed to list configs", err)
		}
		checkResponseError("list_configs", resp)
		printJSON(resp.Result)
	},
}

var configDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := client()
		resp, err := c.DeleteConfig(context.Background(), args[0])
		if err != nil {
			exitWithError("failed to delete config", err)
		}
		checkResponseError("delete_config", resp)
		fmt.Printf("Deleted profile %q.\n", args[0])
	},
}

func init() {
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configLoadCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configDeleteCmd)
	rootCmd.AddCommand(configCmd)
}
