package main

import (
	"fmt"
	"os"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/cli"
)

// #region main
func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main
