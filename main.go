// Package main is the entry point for the regcov CLI.
package main

import "regcov.dev/pkg/regcov/cmd"

func main() {
	cmd.Execute()
}
