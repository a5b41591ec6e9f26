// Package main is the entry point for the qv CLI.
package main

import "github.com/noakmilo/qventory-backend/cmd/qv/cmd"

func main() {
	cmd.Execute()
}
