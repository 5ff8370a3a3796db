package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/warpVIT1/tarot-booking-app/internal/app"
	"github.com/warpVIT1/tarot-booking-app/internal/cli"
	"github.com/warpVIT1/tarot-booking-app/internal/config"
	"github.com/warpVIT1/tarot-booking-app/internal/logger"
)

var CLI struct {
	Debug bool `help:"Verbose logging."`

	Seed     cli.SeedCmd     `cmd:"" help:"Create dev identities and tomorrow's slots."`
	Remind   cli.RemindCmd   `cmd:"" help:"Run one reminder scan."`
	Maintain cli.MaintainCmd `cmd:"" help:"Complete elapsed bookings and release orphaned slots."`
	Slots    cli.SlotsCmd    `cmd:"" help:"List slots."`
	Enroll   cli.EnrollCmd   `cmd:"" help:"Create an account with a password."`
	Token    cli.TokenCmd    `cmd:"" help:"Print a session token for a dev identity."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("slotctl"),
		kong.Description("Operator tool for the tarot booking service"),
		kong.UsageOnError(),
	)

	cfg := config.Load()
	logger.Init(logger.Config{Debug: CLI.Debug || cfg.Log.Debug, File: cfg.Log.File})

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = kctx.Run(&cli.Context{Ctx: ctx, App: a, Out: os.Stdout})
	a.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
