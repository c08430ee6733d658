package main

import (
	"context"
	"os"

	"ai-docqa-be/internal/bootstrap"
	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/pkg/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:           "ragctl",
		Short:         "Operator tools for the document QA backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(probeCMD(), sweepCMD(), collectionsCMD(), eventsCMD())
	if err := root.ExecuteContext(context.Background()); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// withContainer builds the same container as the server, with logs kept out of the terminal.
func withContainer(ctx context.Context, fn func(cfg *config.Config, c *bootstrap.Container) error) error {
	cfg := config.Load()
	sysLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	defer sysLogger.Sync()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	container, err := bootstrap.NewContainer(ctx, cfg, sysLogger)
	if err != nil {
		return err
	}
	defer container.Close()

	return fn(cfg, container)
}
