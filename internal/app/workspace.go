package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"alchemist/internal/config"
	"alchemist/internal/db"
	"alchemist/internal/engine"
	"alchemist/internal/migrate"
	"alchemist/internal/tracing"
)

// Workspace is an opened, migrated workspace with its engine.
type Workspace struct {
	Dir    string
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
}

// Open opens the workspace database, applies pending migrations and loads alchemist.yml,
// falling back to the default config when the file does not exist. Tracing starts when the
// config enables it.
func Open(ctx context.Context, dir string, logger *log.Logger) (*Workspace, error) {
	cfg, err := config.LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if cfg.Tracing.Enabled {
		name := cfg.Tracing.ServiceName
		if name == "" {
			name = "alchemist"
		}
		if err := tracing.Init(name, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}
	e := engine.New(conn, cfg)
	e.Logger = logger
	return &Workspace{Dir: dir, DB: conn, Config: cfg, Engine: e}, nil
}

// Close flushes spans and closes the database.
func (w *Workspace) Close(ctx context.Context) error {
	if w.Config != nil && w.Config.Tracing.Enabled {
		if err := tracing.Shutdown(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}
	return w.DB.Close()
}
