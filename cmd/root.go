// Package cmd implements the netsim CLI using the cobra framework.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"netsim/internal/command"
)

var (
	// Global flags
	configDir  string
	socketPath string
	rpcTimeout time.Duration
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "netsim",
	Short: "netsim - network condition simulator (lag switch)",
	Long: `netsim diverts network traffic through a local capture/impair/reinject
pipeline, applying configurable drop, lag, throttle, reorder, tamper,
duplicate, bandwidth, and burst impairments.

The daemon runs in the foreground and exposes a Unix Domain Socket control
surface; this CLI is a thin client over that surface.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", defaultConfigDir(),
		"settings profile and filter history directory")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", defaultSocketPath(),
		"daemon control socket path")
	rootCmd.PersistentFlags().DurationVar(&rpcTimeout, "timeout", 10*time.Second,
		"control socket RPC timeout")
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/netsim"
	}
	return "/etc/netsim"
}

func defaultSocketPath() string {
	return "/var/run/netsim.sock"
}

func client() *command.UDSClient {
	return command.NewUDSClient(socketPath, rpcTimeout)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

// checkResponseError prints resp.Error and exits if set.
func checkResponseError(context string, resp *command.Response) {
	if resp.Error != nil {
		exitWithError(fmt.Sprintf("%s failed: %s", context, resp.Error.Message), nil)
	}
}
