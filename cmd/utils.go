package cmd

import (
	"database/sql"
	"fmt"

	"github.com/rubiojr/textboard/pkg/api"
	"github.com/rubiojr/textboard/pkg/config"
	"github.com/rubiojr/textboard/pkg/db"
	"github.com/rubiojr/textboard/pkg/storage"
)

// openStore loads the configuration and opens the board database, applying
// pending migrations. Callers close the returned handle.
func openStore(configPath string) (*config.Config, *sql.DB, *storage.Store, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	conn, err := db.OpenAndMigrate(cfg.DatabasePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database %s: %w", cfg.DatabasePath, err)
	}

	return cfg, conn, storage.New(conn), nil
}

func closeDB(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		fmt.Printf("Warning: failed to close database: %v\n", err)
	}
}

// settingsFromConfig maps the reloadable parts of the configuration onto
// the API server settings.
func settingsFromConfig(cfg *config.Config) api.Settings {
	return api.Settings{
		AdminToken:     cfg.Server.AdminToken,
		ThreadsPerPage: cfg.Board.ThreadsPerPage,
		SearchPerPage:  cfg.Board.SearchPerPage,
		MaxPerPage:     cfg.Board.MaxPerPage,
		BaseURL:        cfg.Server.BaseURL,
	}
}
