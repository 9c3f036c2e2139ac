package main

import (
	"fmt"
	"os"

	"acvcharts/internal/cli"
)

var version = "dev"

func main() {
	cmd := cli.NewServeCommand(version)
	cmd.Use = "acvcharts"
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
