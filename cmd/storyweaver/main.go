// Package main is the entry point for the storyweaver CLI.
package main

import (
	"os"

	"github.com/zhe.chen/storyweaver/cmd/storyweaver/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
