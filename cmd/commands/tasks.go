package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/taskrelay-io/taskrelay/internal/config"
	"github.com/taskrelay-io/taskrelay/internal/tasks"
)

// NewTasksCommand returns the tasks subcommand.
func NewTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Inspect tasks directly in the store",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "project",
						Usage: "Filter by project ID",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status",
					},
				},
				Action: runTasksList,
			},
			{
				Name:      "show",
				Usage:     "Show task details",
				ArgsUsage: "<task_id>",
				Action:    runTasksShow,
			},
		},
		DefaultCommand: "list",
	}
}

func runTasksList(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		cfg = config.Default()
	}
	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setup storage: %w", err)
	}
	defer st.close()

	filter := tasks.ListFilter{ProjectID: cmd.String("project")}
	if s := cmd.String("status"); s != "" {
		filter.Statuses = []tasks.Status{tasks.Status(s)}
	}

	list, err := st.tasks.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROJECT\tSTATUS\tINTERACTIVE\tTITLE")
	for _, t := range list {
		interactive := "-"
		if t.IsInteractive {
			interactive = "yes"
			if t.AIWaitingFeedback {
				interactive = "waiting"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.ProjectID,
			t.Status,
			interactive,
			t.Title,
		)
	}
	return w.Flush()
}

func runTasksShow(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: taskrelay tasks show <task_id>")
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

	t, err := st.tasks.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}

	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Project:     %s\n", t.ProjectID)
	fmt.Printf("Title:       %s\n", t.Title)
	fmt.Printf("Status:      %s\n", t.Status)
	fmt.Printf("Interactive: %v\n", t.IsInteractive)
	fmt.Printf("Created:     %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	if t.CompletedAt != nil {
		fmt.Printf("Completed:   %s\n", t.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if t.InteractionSessionID != "" {
		fmt.Printf("Session:     %s\n", t.InteractionSessionID)
	}
	if t.AIWaitingFeedback {
		fmt.Println("Waiting:     agent is waiting for human feedback")
	}

	if t.Description != "" {
		fmt.Printf("\nDescription:\n%s\n", t.Description)
	}
	if t.FeedbackContent != "" {
		fmt.Printf("\nLast feedback")
		if t.FeedbackAt != nil {
			fmt.Printf(" (%s)", t.FeedbackAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf(":\n%s\n", t.FeedbackContent)
	}

	entries, err := st.ledger.ForTask(ctx, taskID)
	if err == nil && len(entries) > 0 {
		fmt.Println("\nInteraction history:")
		for _, e := range entries {
			fmt.Printf("  [%s] %s/%s by %s: %s\n",
				e.CreatedAt.Format("15:04:05"), e.Type, e.Status, e.CreatedBy, e.Content)
		}
	}

	return nil
}
