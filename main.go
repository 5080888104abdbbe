// Package main provides the entry point for tomasim.
// tomasim is a cycle-accurate Tomasulo out-of-order timing simulator built
// on Akita.
//
// For the full CLI, use: go run ./cmd/tomasim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("tomasim - Tomasulo Timing Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: tomasim [options] <trace.json>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to latency configuration JSON file")
	fmt.Println("  -machine   Path to machine configuration JSON file")
	fmt.Println("  -engine    Drive the pipeline through the akita engine")
	fmt.Println("  -timeline  Print the per-instruction timeline")
	fmt.Println("  -v         Log every pipeline event")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/tomasim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/tomasim' instead.")
	}
}
