// Package main is the entry point for the aqareport CLI.
package main

import (
	"os"

	"github.com/Goraved/aqareport/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
