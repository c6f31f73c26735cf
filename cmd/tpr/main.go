package main

import (
	"os"

	"github.com/bnema/token-pool-router/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
