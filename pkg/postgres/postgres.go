package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type DB struct {
	*sqlx.DB
	cfg     Config
	openErr error
}

// NewDB prepares the connection pool. sqlx.Open does not dial, so connection
// problems only show up in Start.
func NewDB(config Config) *DB {
	db, err := sqlx.Open("postgres", config.DSN())
	if err != nil {
		return &DB{cfg: config, openErr: fmt.Errorf("failed to open database: %w", err)}
	}

	return &DB{
		cfg: config,
		DB:  db,
	}
}

func (d *DB) Start(ctx context.Context) error {
	if d.openErr != nil {
		return d.openErr
	}

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database %s@%s: %w", d.cfg.DBName, d.cfg.DBHost, err)
	}

	return nil
}

func (d *DB) Stop(ctx context.Context) error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
