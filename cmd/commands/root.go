// Package commands wires the CLI surface of taskrelay.
package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/taskrelay-io/taskrelay/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "taskrelay",
		Usage: "Task coordination between AI agents and humans",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewGatewayCommand(),
			NewMCPServeCommand(),
			NewProjectsCommand(),
			NewTasksCommand(),
		},
	}
}
