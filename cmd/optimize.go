package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rubiojr/textboard/pkg/storage"
	"github.com/urfave/cli/v3"
)

// OptimizeCommand creates the optimize command
func OptimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Database optimization and maintenance commands",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Run integrity checks on the database and search indexes",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(c.String("config"), func(store *storage.Store) error {
						return checkDatabase(ctx, store)
					})
				},
			},
			{
				Name:  "fts-rebuild",
				Usage: "Rebuild the full-text search indexes from threads and replies",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Rebuild without running the integrity check first",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(c.String("config"), func(store *storage.Store) error {
						return rebuildFTS(ctx, store, c.Bool("force"))
					})
				},
			},
			{
				Name:  "analyze",
				Usage: "Run ANALYZE to update query planner statistics",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(c.String("config"), func(store *storage.Store) error {
						return timed("analyze", func() error { return store.Analyze(ctx) })
					})
				},
			},
			{
				Name:  "vacuum",
				Usage: "Run VACUUM to defragment the database",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(c.String("config"), func(store *storage.Store) error {
						return timed("vacuum", func() error { return store.Vacuum(ctx) })
					})
				},
			},
			{
				Name:  "checkpoint",
				Usage: "Run WAL checkpoint to flush changes",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(c.String("config"), func(store *storage.Store) error {
						return timed("wal checkpoint", func() error { return store.WALCheckpoint(ctx) })
					})
				},
			},
			{
				Name:  "all",
				Usage: "Run all optimization operations (search index, optimize, analyze, checkpoint, vacuum)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rebuild",
						Usage: "Rebuild the search indexes instead of merging their segments",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(c.String("config"), func(store *storage.Store) error {
						return optimizeAll(ctx, store, c.Bool("rebuild"))
					})
				},
			},
		},
	}
}

func withStore(configPath string, fn func(*storage.Store) error) error {
	cfg, conn, store, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB(conn)

	fmt.Printf("Database: %s\n", cfg.DatabasePath)
	return fn(store)
}

func timed(name string, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Printf("  ✓ %s completed in %v\n", name, time.Since(start).Round(time.Millisecond))
	return nil
}

// optimizeAll runs every maintenance step, reporting each one
func optimizeAll(ctx context.Context, store *storage.Store, rebuild bool) error {
	var failed int
	for _, step := range store.MaintenanceSteps(rebuild) {
		if err := timed(step.Name, func() error { return step.Run(ctx) }); err != nil {
			fmt.Printf("  ✗ %v\n", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d maintenance steps failed", failed)
	}
	fmt.Println("\nAll optimizations completed successfully")
	return nil
}

// checkDatabase reports integrity problems and fails when there are any
func checkDatabase(ctx context.Context, store *storage.Store) error {
	problems, err := store.CheckIntegrity(ctx)
	if err != nil {
		return err
	}
	if len(problems) == 0 {
		fmt.Println("  ✓ database and search indexes are healthy")
		return nil
	}

	fmt.Printf("  ✗ %d problems found:\n", len(problems))
	for _, p := range problems {
		fmt.Printf("    - %s\n", p)
	}
	fmt.Println("\nRun 'textboard optimize fts-rebuild' to repair the search indexes")
	return fmt.Errorf("integrity check failed")
}

// rebuildFTS rebuilds the search indexes. Unless forced it checks first and
// skips the rebuild on a healthy database.
func rebuildFTS(ctx context.Context, store *storage.Store, force bool) error {
	if !force {
		problems, err := store.CheckIntegrity(ctx)
		if err != nil {
			return err
		}
		if len(problems) == 0 {
			fmt.Println("  ✓ search indexes are healthy, nothing to rebuild (use --force to rebuild anyway)")
			return nil
		}
		fmt.Printf("  ! %d problems found, rebuilding\n", len(problems))
	}

	return timed("search index rebuild", func() error { return store.OptimizeSearchIndex(ctx, true) })
}
