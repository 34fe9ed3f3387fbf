package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/taskrelay-io/taskrelay/internal/config"
	"github.com/taskrelay-io/taskrelay/internal/projects"
)

// NewProjectsCommand returns the projects subcommand.
func NewProjectsCommand() *cli.Command {
	return &cli.Command{
		Name:  "projects",
		Usage: "Manage projects",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List projects of an owner",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "owner",
						Usage:    "Owner actor ID",
						Required: true,
					},
				},
				Action: runProjectsList,
			},
			{
				Name:      "create",
				Usage:     "Create a project",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "owner",
						Usage:    "Owner actor ID",
						Required: true,
					},
				},
				Action: runProjectsCreate,
			},
		},
		DefaultCommand: "list",
	}
}

func runProjectsList(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		cfg = config.Default()
	}
	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setup storage: %w", err)
	}
	defer st.close()

	list, err := st.projects.ListByOwner(ctx, cmd.String("owner"))
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLAST ACTIVITY")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.LastActivityAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runProjectsCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: taskrelay projects create --owner <actor_id> <name>")
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		cfg = config.Default()
	}
	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setup storage: %w", err)
	}
	defer st.close()

	p := &projects.Project{Name: name, OwnerID: cmd.String("owner")}
	if err := st.projects.Create(ctx, p); err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	fmt.Printf("Project %s created (%s).\n", p.Name, p.ID)
	return nil
}
