// Package main provides the sqlharvest CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlharvest/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
