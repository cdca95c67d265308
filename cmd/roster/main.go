package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/roster/internal/roster/app"
	"github.com/aussiebroadwan/roster/internal/roster/cli"
	"github.com/aussiebroadwan/roster/internal/roster/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := app.LoadConfig(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "roster: %v\n", err)
		return 1
	}

	application, err := app.New(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "roster: %v\n", err)
		return 1
	}
	defer func() { _ = application.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cli.New(cli.Services{
		Credentials: application.Credentials,
		Invites:     application.Invites,
		Privileges:  application.Privileges,
		Bootstrap:   application.Bootstrap,
		Session:     application.Session,
	}, os.Stdin, os.Stdout)

	if err := c.Run(application.Context(ctx), os.Args[1:]); err != nil {
		switch {
		case errors.Is(err, cli.ErrUsage):
			fmt.Fprintf(os.Stderr, "roster: %v\n", err)
			return 2
		case service.IsRetryable(err):
			fmt.Fprintf(os.Stderr, "roster: %v (try again)\n", err)
			return 75
		default:
			fmt.Fprintf(os.Stderr, "roster: %v\n", err)
			return 1
		}
	}
	return 0
}
