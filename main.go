// Package main is the entry point for the jiraflow CLI.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/jiraflow/cmd"
)

// main executes the root command and exits non-zero on failure.
func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
