package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var startFilter string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the capture/impairment session",
	Long:  "Start the daemon's capture/impairment pipeline against a filter expression.",
	Run: func(cmd *cobra.Command, args []string) {
		runStartCommand()
	},
}

func init() {
	startCmd.Flags().StringVarP(&startFilter, "filter", "F", "", "capture filter expression")
	rootCmd.AddCommand(startCmd)
}

func runStartCommand() {
	c := client()
	ctx := context.Background()

	resp, err := c.StartProcessing(ctx, startFilter, nil)
	if err != nil {
		exitWithError("failed to start processing", err)
	}
	checkResponseError("start_processing", resp)

	fmt.Println("Processing started.")
}
