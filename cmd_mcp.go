package main

import (
	"context"

	"Tapflow/mcp"
	"Tapflow/pkg/adb"
	"Tapflow/pkg/logger"

	"github.com/urfave/cli/v2"
)

var mcpCommand = &cli.Command{
	Name:  "mcp",
	Usage: "Serve the automation engine over MCP on stdio",
	Description: `Starts an MCP server for AI clients. Touch capture runs in the background
so record_start/record_stop work, and the script library is reloaded when
files in the scripts directory change.`,
	Action: runMCP,
}

func runMCP(c *cli.Context) error {
	rt, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	if err := rt.start(ctx); err != nil {
		return err
	}

	if err := rt.library.Watch(func() {
		logger.LogInfo("main").Int("scripts", len(rt.library.List())).Msg("Script library reloaded")
	}); err != nil {
		logger.LogWarn("main").Err(err).Msg("Script library watch unavailable")
	}

	go func() {
		if err := adb.NewTouchSource(rt.host).Run(ctx, rt.engine.Channel()); err != nil {
			logger.LogWarn("main").Err(err).Msg("Touch capture unavailable, recordings will stay empty")
		}
	}()

	return mcp.NewMCPServer(rt.engine, Version).Start()
}
