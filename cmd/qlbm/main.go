// Command qlbm compiles lattice Boltzmann geometries into quantum circuits.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

const version = "0.3.0"

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), flag.Args()[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, stdout, stderr io.Writer) error {
	switch command {
	case "compile":
		return handleCompile(args, stdout, stderr)
	case "inspect":
		return handleInspect(args, stdout, stderr)
	case "stats":
		return handleStats(args, stdout, stderr)
	case "plot":
		return handlePlot(args, stdout, stderr)
	case "view":
		return handleView(args, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "qlbm version %s\n", version)
		return nil
	case "help":
		printUsage()
		return nil
	}
	return fmt.Errorf("unknown command: %s", command)
}

func printUsage() {
	fmt.Println(`qlbm - quantum lattice Boltzmann circuit compiler

Usage: qlbm <command> [options] <config.json>

Commands:
  compile    Compile a configuration to OpenQASM 2.0
  inspect    Print the qubit layout and the boundary classification
  stats      Print gate counts and depth per fragment
  plot       Render the geometry to PNG
  view       Browse the compiled fragments interactively
  version    Show qlbm version
  help       Show this help message

Common Flags:
  --timesteps <n>      Number of time steps (overrides run.timesteps)
  --no-barriers        Do not separate operators with barriers
  --v                  Enable diagnostic logging

Space-time Flags (velocities "D2Q4"):
  --inside             Keep reflections at points inside obstacles
  --volumetric         Reflect block walls with comparator ancillae
  --measurement        Add the mass measurement ancilla

Examples:
  # Compile and cache the fragments
  qlbm compile --cache fragments.db -o channel.qasm channel.json

  # Gate counts with an HTML chart
  qlbm stats --html gates.html channel.json

  # Browse cached fragments
  qlbm view --cache fragments.db channel.json`)
}
