package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kilometers.ai/pluginrepo/internal/interfaces/cli"
	"kilometers.ai/pluginrepo/internal/interfaces/di"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Fprintln(os.Stderr, "Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	cli.Execute(ctx, di.Factory)
}
