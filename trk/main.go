package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"

	"github.com/etnz/tracker/cmd"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}

	// Shell completion of the global flags; a no-op outside a completion
	// request.
	complete.CommandLine()

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
