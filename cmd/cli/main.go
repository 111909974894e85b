package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/peng0105/password-xl/internal/buildinfo"
	"github.com/peng0105/password-xl/internal/client/cli"
	"github.com/peng0105/password-xl/internal/client/config"
	"github.com/peng0105/password-xl/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, "text")

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Run(ctx)

}
