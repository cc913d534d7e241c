package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Inspect or change the daemon's capture filter",
}

var filterGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current capture filter",
	Run: func(cmd *cobra.Command, args []string) {
		c := client()
		resp, err := c.GetFilter(context.Background())
		if err != nil {
			exitWithError("failed to get filter", err)
		}
		checkResponseError("get_filter", resp)
		printJSON(resp.Result)
	},
}

var filterUpdateCmd = &cobra.Command{
	Use:   "update <expression>",
	Short: "Replace the capture filter",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := client()
		resp, err := c.UpdateFilter(context.Background(), args[0])
		if err != nil {
			exitWithError("failed to update filter", err)
		}
		checkResponseError("update_filter", resp)
		fmt.Println("Filter updated.")
	},
}

var filterHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved filter history, most recent first",
	Run: func(cmd *cobra.Command, args []string) {
		c := client()
		resp, err := c.GetFilterHistory(context.Background())
		if err != nil {
			exitWithError("failed to get filter history", err)
		}
		checkResponseError("get_filter_history", resp)
		printJSON(resp.Result)
	},
}

var filterClearHistoryCmd = &cobra.Command{
	Use:   "clear-history",
	Short: "Clear saved filter history",
	Run: func(cmd *cobra.Command, args []string) {
		c := client()
		resp, err := c.ClearFilterHistory(context.Background())
		if err != nil {
			exitWithError("failed to clear filter history", err)
		}
		checkResponseError("clear_filter_history", resp)
		fmt.Println("Filter history cleared.")
	},
}

func init() {
	filterCmd.AddCommand(filterGetCmd)
	filterCmd.AddCommand(filterUpdateCmd)
	filterCmd.AddCommand(filterHistoryCmd)
	filterCmd.AddCommand(filterClearHistoryCmd)
	rootCmd.AddCommand(filterCmd)
}
