package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/taskrelay-io/taskrelay/internal/config"
	"github.com/taskrelay-io/taskrelay/internal/events"
	"github.com/taskrelay-io/taskrelay/internal/interaction"
	relaymcp "github.com/taskrelay-io/taskrelay/internal/mcp"
	"github.com/taskrelay-io/taskrelay/internal/tools"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp-serve",
		Usage: "Expose coordination tools as an MCP server (stdio)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "token",
				Usage:   "API token identifying the calling agent",
				Sources: cli.EnvVars("TASKRELAY_TOKEN"),
			},
		},
		Action: runMCPServe,
	}
}

func runMCPServe(_ context.Context, cmd *cli.Command) error {
	// Logging goes to stderr; stdout carries the MCP stdio transport.
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	}

	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Debug("config not found, using defaults", "path", configPath, "error", err)
		cfg = config.Default()
	}

	ctx := context.Background()

	token := cmd.String("token")
	if token == "" {
		return fmt.Errorf("an API token is required: pass --token or set TASKRELAY_TOKEN")
	}
	actor, err := buildResolver(cfg).Resolve(ctx, token)
	if err != nil {
		return fmt.Errorf("token not recognized: %w", err)
	}

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setup storage: %w", err)
	}
	defer st.close()

	svc := interaction.NewService(st.tasks, st.projects, st.ledger, bus)
	waiter := interaction.NewWaiter(st.tasks, st.projects, st.ledger, bus)

	registry, err := tools.NewCoordinationRegistry(svc, waiter)
	if err != nil {
		return fmt.Errorf("setup tools: %w", err)
	}

	slog.Debug("starting MCP server", "actor", actor.ID, "tools", len(registry.Names()))

	server := relaymcp.NewMCPServer(registry, actor, buildLimiter(cfg))
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
