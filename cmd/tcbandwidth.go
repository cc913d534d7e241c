package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	tcBandwidthLimitKbps float64
	tcBandwidthFilter    string
)

var tcBandwidthCmd = &cobra.Command{
	Use:   "tc-bandwidth",
	Short: "Control the standalone throttler sender (component H)",
	Long:  "Runs a precise token-bucket rate limiter independent of the main pipeline, selected instead of the inline bandwidth module.",
}

var tcBandwidthStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the standalone throttler sender",
	Run: func(cmd *cobra.Command, args []string) {
		c := client()
		resp, err := c.StartTCBandwidth(context.Background(), tcBandwidthLimitKbps, tcBandwidthFilter)
		if err != nil {
			exitWithError("failed to start tc bandwidth", err)
		}
		checkResponseError("start_tc_bandwidth", resp)
		fmt.Println("TC bandwidth limiter started.")
	},
}

var tcBandwidthStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the standalone throttler sender",
	Run: func(cmd *cobra.Command, args []string) {
		c := client()
		resp, err := c.StopTCBandwidth(context.Background())
		if err != nil {
			exitWithError("failed to stop tc bandwidth", err)
		}
		checkResponseError("stop_tc_bandwidth", resp)
		fmt.Println("TC bandwidth limiter stopped.")
	},
}

var tcBandwidthStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the standalone throttler sender is active",
	Run: func(cmd *cobra.Command, args []string) {
		c := client()
		resp, err := c.GetTCBandwidthStatus(context.Background())
		if err != nil {
			exitWithError("failed to get tc bandwidth status", err)
		}
		checkResponseError("get_tc_bandwidth_status", resp)
		printJSON(resp.Result)
	},
}

func init() {
	tcBandwidthStartCmd.Flags().Float64VarP(&tcBandwidthLimitKbps, "limit-kbps", "l", 0, "rate limit in kilobytes per second")
	tcBandwidthStartCmd.MarkFlagRequired("limit-kbps")
	tcBandwidthStartCmd.Flags().StringVarP(&tcBandwidthFilter, "filter", "F", "", "capture filter expression")

	tcBandwidthCmd.AddCommand(tcBandwidthStartCmd)
	tcBandwidthCmd.AddCommand(tcBandwidthStopCmd)
	tcBandwidthCmd.AddCommand(tcBandwidthStatusCmd)
	rootCmd.AddCommand(tcBandwidthCmd)
}
