package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active capture/impairment session",
	Long:  "Stop processing on the daemon. The daemon process itself keeps running.",
	Run: func(cmd *cobra.Command, args []string) {
		runStopCommand()
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStopCommand() {
	c := client()
	ctx := context.Background()

	resp, err := c.StopProcessing(ctx)
	if err != nil {
		exitWithError("failed to stop processing", err)
	}
	checkResponseError("stop_processing", resp)

	fmt.Println("Processing stopped.")
}
