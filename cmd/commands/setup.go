package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskrelay-io/taskrelay/internal/auth"
	"github.com/taskrelay-io/taskrelay/internal/config"
	"github.com/taskrelay-io/taskrelay/internal/interaction"
	"github.com/taskrelay-io/taskrelay/internal/projects"
	"github.com/taskrelay-io/taskrelay/internal/ratelimit"
	"github.com/taskrelay-io/taskrelay/internal/tasks"
)

// stores bundles the persistence layer selected by the config.
type stores struct {
	tasks    tasks.Store
	projects projects.Store
	ledger   interaction.Ledger
	close    func()
}

// openStores builds the storage backend from the config. The file driver
// needs no external service; the postgres driver connects a pgx pool and
// creates missing tables.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Storage.Driver {
	case "", "file":
		dir := cfg.Storage.Dir
		if dir == "" {
			dir = filepath.Join(config.TaskrelayPath(), "data")
		}
		return &stores{
			tasks:    tasks.NewFileStore(filepath.Join(dir, "tasks")),
			projects: projects.NewFileStore(filepath.Join(dir, "projects")),
			ledger:   interaction.NewFileLedger(filepath.Join(dir, "interactions")),
			close:    func() {},
		}, nil

	case "postgres":
		if cfg.Storage.DSN == "" {
			return nil, fmt.Errorf("storage.dsn is required for the postgres driver")
		}
		pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		taskStore := tasks.NewPgStore(pool)
		projectStore := projects.NewPgStore(pool)
		ledger := interaction.NewPgLedger(pool)
		for name, ensure := range map[string]func(context.Context) error{
			"tasks":            taskStore.EnsureTable,
			"projects":         projectStore.EnsureTable,
			"interaction_logs": ledger.EnsureTable,
		} {
			if err := ensure(ctx); err != nil {
				pool.Close()
				return nil, fmt.Errorf("ensure table %s: %w", name, err)
			}
		}

		return &stores{
			tasks:    taskStore,
			projects: projectStore,
			ledger:   ledger,
			close:    pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// buildResolver maps the configured tokens to actors.
func buildResolver(cfg *config.Config) *auth.StaticResolver {
	entries := make(map[string]auth.Actor, len(cfg.Auth.Tokens))
	for _, t := range cfg.Auth.Tokens {
		if t.Token == "" || t.ActorID == "" {
			continue
		}
		entries[t.Token] = auth.Actor{ID: t.ActorID, Name: t.Name}
	}
	return auth.NewStaticResolver(entries)
}

// buildLimiter builds the sliding-window rate limiter from the config.
func buildLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)
}
