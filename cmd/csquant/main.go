package main

import (
	"os"

	"github.com/wonny/csquant/cmd/csquant/commands"
)

// main is the entry point for the csquant CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
