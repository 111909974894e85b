package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/peng0105/password-xl/internal/buildinfo"
	"github.com/peng0105/password-xl/internal/logging"
	"github.com/peng0105/password-xl/internal/server"
	"github.com/peng0105/password-xl/internal/server/config"
	"github.com/peng0105/password-xl/internal/server/services"
	"golang.org/x/term"
)

func main() {

	// "server hash" prints a bcrypt hash for a users entry.
	if len(os.Args) > 1 && os.Args[1] == "hash" {
		if err := printHash(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, "json")
	ctx := context.Background()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}

func printHash() error {
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	h, err := services.HashPassword(string(pw))
	if err != nil {
		return err
	}
	fmt.Println(h)
	return nil
}
