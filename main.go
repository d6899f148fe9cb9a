// Package main provides the entry point for EvgSim.
// EvgSim is a cycle-level timing simulator for Evergreen-class GPUs.
//
// For the full CLI, use: go run ./cmd/evgsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("EvgSim - Evergreen GPU Timing Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: evgsim <command> [flags]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run       Simulate a kernel described by a JSON file")
	fmt.Println("  bench     Run the timing microbenchmarks")
	fmt.Println("  config    Print the default GPU configuration")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/evgsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/evgsim' instead.")
	}
}
