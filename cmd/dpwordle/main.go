package main

import (
	"os"

	"github.com/benjaminjkraft/dp-wordle/cmd/dpwordle/commands"
)

var version = "dev"

func main() {
	commands.SetVersion(version)
	if err := commands.Execute(); err != nil {
		commands.PrintError(err)
		os.Exit(1)
	}
}
