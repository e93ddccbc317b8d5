package main

import (
	"os"

	"github.com/skyfleet/skyfleet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
