// Package main is the entry point for gymvault.
package main

import "github.com/gymvault/gymvault/internal/cli"

func main() {
	cli.Execute()
}
