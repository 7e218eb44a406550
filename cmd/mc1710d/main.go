// Command mc1710d runs the dedicated server: it loads configuration,
// wires up a minimal block registry and flat-world generator, and drives
// the accept loop and tick loop until asked to shut down.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ErikPelli/mc1710d/internal/config"
	"github.com/ErikPelli/mc1710d/internal/logx"
	"github.com/ErikPelli/mc1710d/internal/registry"
	"github.com/ErikPelli/mc1710d/internal/server"
	"github.com/ErikPelli/mc1710d/internal/worldgen"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logx.Log.WithError(err).Error("failed to load configuration")
		return 1
	}
	logx.Configure(cfg.LogLevel)

	signal.Ignore(syscall.SIGPIPE)

	blocks := registry.NewStaticBlocks()
	gen := worldgen.Flat(true, 1 /* stone */, 3 /* dirt */, 2 /* grass */, 4)

	srv := server.New(cfg, registry.Set{Blocks: blocks}, gen)
	if err := srv.Listen(); err != nil {
		logx.Log.WithError(err).Error("failed to listen")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()
	go srv.RunTickLoop(ctx)

	select {
	case sig := <-sigCh:
		logx.Log.WithField("signal", sig).Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			logx.Log.WithError(err).Error("accept loop exited")
		}
	}

	cancel()
	srv.Shutdown()
	return 0
}
