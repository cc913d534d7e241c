// Package main is the entry point for the netsim network condition simulator.
package main

import (
	"fmt"
	"os"

	"netsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
