package main

import (
	"os"

	"github.com/sentra-systems/sentra/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
