// Command wealthctl inspects and maintains the wealth tracker database from
// the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"wealthtrack/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	e := newEnv(os.Stdout, os.Stderr)
	for _, c := range commands(e) {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
