package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/yiblet/kopa/internal/cli"
)

func main() {
	var args cli.Args
	parser := arg.MustParse(&args)

	// Default behavior: launch the browser
	if args.Empty() {
		args.Browse = &cli.BrowseCmd{}
	}

	cliHandler, err := cli.NewWithArgs(&args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cliHandler.Execute(ctx, &args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if err := args.Validate(); err != nil {
			fmt.Fprintln(os.Stderr)
			parser.WriteUsage(os.Stderr)
		}
		stop()
		os.Exit(1)
	}
}
