// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  "Query the daemon for whether processing is active, its filter, and impairment stats.",
	Run: func(cmd *cobra.Command, args []string) {
		runStatusCommand()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatusCommand() {
	c := client()
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		exitWithError("daemon is not running or socket is inaccessible", err)
	}

	resp, err := c.GetStatus(ctx)
	if err != nil {
		exitWithError("failed to query status", err)
	}
	checkResponseError("get_status", resp)

	printJSON(resp.Result)
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitWithError("failed to format result", err)
	}
	fmt.Println(string(out))
}
