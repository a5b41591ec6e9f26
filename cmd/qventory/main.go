// Package main is the entry point for the qventory relist backend.
package main

import (
	"os"

	"github.com/noakmilo/qventory-backend/cmd/qventory/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
