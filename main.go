// Package main is the entry point for offtube.
package main

import (
	"github.com/offtube/offtube/cmd"
	"github.com/offtube/offtube/config"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())

	// Logging is configured by the root command once flags are parsed.
	cmd.Execute()
}
