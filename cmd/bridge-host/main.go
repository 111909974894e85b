// Command bridge-host serves one storage backend over the bridge protocol so
// that a client started with -b bridge can reach it through this process.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/peng0105/password-xl/internal/buildinfo"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage/backend"
	"github.com/peng0105/password-xl/internal/client/storage/bridge"
	"github.com/peng0105/password-xl/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	address := fs.String("a", "127.0.0.1:7390", "listen address, unix:/path for a socket")
	kind := fs.String("b", models.LoginTypeLocal, "backend to serve")
	level := fs.String("l", "info", "log level")
	_ = fs.Parse(os.Args[1:])

	if *kind == models.LoginTypeBridge {
		log.Fatalf("a bridge host cannot serve another bridge")
	}

	logger := logging.New(os.Stderr, *level, "text")

	adapter, err := backend.New(*kind, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bridge.NewServer(adapter, logger).Run(ctx, *address); err != nil {
		log.Fatalf("%v", err)
	}

}
