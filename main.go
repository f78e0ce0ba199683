package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time
var Version = "dev"

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file (.toml, .yaml or .json)",
		EnvVars: []string{"TAPFLOW_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"s"},
		Usage:   "Device serial; defaults to the only attached device",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable debug logging",
	},
}

func main() {
	app := &cli.App{
		Name:    "tapflow",
		Usage:   "Record, replay and script touch automation on Android devices",
		Version: Version,
		Description: `Tapflow records touch sessions with resolution independent coordinates,
replays them on any screen size, and runs text driven scripts that wait for
on-screen text and act on it.

Examples:
  tapflow record --name login
  tapflow replay 6f1c2a...
  tapflow run checkout.yaml
  tapflow find "Confirm" --mode starts_with
  tapflow mcp`,
		Flags: globalFlags,
		Commands: []*cli.Command{
			recordCommand,
			replayCommand,
			runCommand,
			findCommand,
			sessionsCommand,
			validateCommand,
			mcpCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
