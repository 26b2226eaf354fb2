package main

import (
	"os"

	"github.com/wonny/fip/cmd/fip/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
