package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/bryanwahyu/polycode-insight/internal/config"
)

// Connect opens the submission store and checks that the analysis_submissions
// migration has been applied.
func Connect(ctx context.Context, dsn string, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := prepare(ctx, db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func prepare(ctx context.Context, db *sql.DB, cfg config.DatabaseConfig) error {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		return err
	}
	// tabel belum ada = migrasi belum dijalankan
	if _, err := db.ExecContext(ctx2, "SELECT 1 FROM analysis_submissions WHERE 1 = 0"); err != nil {
		return fmt.Errorf("analysis_submissions not ready, run migrations/postgres: %w", err)
	}
	return nil
}
