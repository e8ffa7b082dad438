package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"story-studio/story-client/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, &cli.App{}, os.Args[1:])
	stop()
	os.Exit(code)
}
