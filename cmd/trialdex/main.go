// Command trialdex loads clinical trial records into a hybrid search index.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/trialdex/internal/adapters/driving/cli"
)

// version is set by the build via -ldflags.
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already carry the values.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
