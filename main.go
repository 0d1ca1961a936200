// Package main provides the entry point for ScarabFE.
// ScarabFE is a decoupled fetch front-end simulator built on Akita.
//
// For the full CLI, use: go run ./cmd/decoupledfe
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("ScarabFE - Decoupled Fetch Front-End Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: decoupledfe [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to front-end configuration JSON file")
	fmt.Println("  -ticks     Number of producer ticks to run")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/decoupledfe' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/decoupledfe' instead.")
	}
}
