package main

import (
	"context"
	"log"
	"os"

	"github.com/papersson/code-bot/internal/buildinfo"
	"github.com/papersson/code-bot/internal/server"
	"github.com/papersson/code-bot/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	app.Run(ctx)

}
