// Command pixdex indexes a local photo library for visual similarity search.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/pixdex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/pixdex/internal/adapters/driving/cli"
	"github.com/custodia-labs/pixdex/internal/logger"
)

// Set by the release build.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := file.LoadDotEnv(".env"); err != nil {
		logger.Warn("loading .env: %v", err)
	}

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
