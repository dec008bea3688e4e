package main

import (
	"os"

	"github.com/dvloznov/exchange-desk/cmd/deskctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
