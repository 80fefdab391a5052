package main

import (
	"os"

	"github.com/bobmcallan/partsdesk/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
