package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/apresai/paperpod/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx); err != nil {
		cli.Fatal(err)
		cancel()
		os.Exit(1)
	}
}
