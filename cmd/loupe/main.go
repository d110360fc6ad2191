package main

import (
	"os"

	"github.com/loupe-search/loupe/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
