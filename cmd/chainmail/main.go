package main

import (
	"os"

	"chainmail/cmd/chainmail/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
