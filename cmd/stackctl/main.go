package main

import (
	"os"

	"github.com/stackforge/stackctl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
