package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "path of the configuration file (default: user config dir)",
		Sources: cli.EnvVars("COPERNICUS_CONFIG"),
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "debug, info, warn or error",
		Value:   "warn",
		Sources: cli.EnvVars("COPERNICUS_LOG_LEVEL"),
	}
	timeoutFlag = &cli.DurationFlag{
		Name:    "timeout",
		Aliases: []string{"t"},
		Usage:   "HTTP timeout for catalogue and identity requests (e.g. 30s, 1m)",
		Value:   30 * time.Second,
	}
	envFileFlag = &cli.StringFlag{
		Name:  "env-file",
		Usage: "load COPERNICUS_USER / COPERNICUS_PASS from this file (default: ./.env if present)",
	}
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "text or json",
		Value:   outputText,
	}
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:           "copernicus",
		Usage:          "Search and download Copernicus satellite imagery",
		Flags:          []cli.Flag{configFlag, logLevelFlag, timeoutFlag, envFileFlag, outputFlag},
		DefaultCommand: "list",
		Commands: []*cli.Command{
			newListCommand(),
			newSearchCommand(),
			newDownloadCommand(),
			newCollectionsCommand(),
			newBrowseCommand(),
			newCredentialsCommand(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
