// edemctl is the operator CLI for edem living agents.
package main

import (
	"fmt"
	"os"

	"github.com/ashureev/edem-agent/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
