package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gdprdesk/internal/client"
	"gdprdesk/internal/console"
	"gdprdesk/internal/platform/logger"
)

func main() {
	if os.Getenv("LOG_LEVEL") != "" {
		log := logger.New()
		defer func() { _ = log.Sync() }()
	}

	cfg := console.LoadConfig()
	server := flag.String("server", cfg.Server, "API base URL ($GDPRCTL_SERVER)")
	state := flag.String("state", cfg.StatePath, "session file ($GDPRCTL_STATE)")
	router := console.NewDefaultRouter()
	flag.Usage = func() { router.Usage(flag.CommandLine.Output()) }
	flag.Parse()

	storage, err := client.NewFileStorage(*state)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	env := &console.Env{
		Client: client.New(*server, client.NewSession(storage)),
		Out:    os.Stdout,
		Err:    os.Stderr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := router.Dispatch(ctx, env, flag.Args()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
