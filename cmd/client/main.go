package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/papersson/code-bot/internal/buildinfo"
	"github.com/papersson/code-bot/internal/client/cli"
	"github.com/papersson/code-bot/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	if err := cli.NewRootCommand(cfg).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
