package main

import (
	"os"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
