// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// DB is the process-wide pool, set by ConnectDB.
var DB *pgxpool.Pool

// ConnectDB opens the pool for dsn, pings it and stores it in DB.
func ConnectDB(ctx context.Context, dsn string, logger logrus.FieldLogger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":     config.ConnConfig.Host,
		"database": config.ConnConfig.Database,
	}).Info("connected to database")
	DB = pool
	return pool, nil
}
