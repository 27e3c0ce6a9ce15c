// Package query runs a single SQL statement against an Azure SQL database
// and prints its outcome.
package query

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"

	"github.com/cafe/cafe/internal/config"
	"go.uber.org/zap"
)

const serverSuffix = ".database.windows.net"

var (
	// ErrMissingServer is returned when no server name is configured.
	ErrMissingServer = errors.New("environment variable SERVER_NAME not set or empty")

	// ErrMissingDatabase is returned when no database name is configured.
	ErrMissingDatabase = errors.New("environment variable DATABASE_NAME not set or empty")
)

// Opener connects to database on server.
type Opener func(ctx context.Context, server, database string) (*sql.DB, error)

// NormalizeServer completes a short server name with the Azure SQL domain.
func NormalizeServer(server string) string {
	if strings.Contains(server, serverSuffix) {
		return server
	}
	return server + serverSuffix
}

// Run checks cfg, connects through open and executes cfg.Query, writing the
// outcome to out. Nothing is opened when the server or database is missing or
// the query is empty.
func Run(ctx context.Context, cfg *config.QueryConfig, open Opener, out io.Writer, log *zap.Logger) error {
	if cfg.Server == "" {
		log.Error("Server name missing")
		return ErrMissingServer
	}
	server := NormalizeServer(cfg.Server)
	log.Info("Using server", zap.String("server", server))

	if cfg.Database == "" {
		log.Error("Database name missing")
		return ErrMissingDatabase
	}
	log.Info("Using database", zap.String("database", cfg.Database))

	if cfg.Query == "" {
		log.Info("No query to execute")
		return nil
	}

	log.Info("Connecting to Azure SQL Database")
	db, err := open(ctx, server, cfg.Database)
	if err != nil {
		log.Error("Failed to connect", zap.String("server", server), zap.Error(err))
		return err
	}
	defer db.Close()

	log.Info("Executing query", zap.String("query", cfg.Query))
	if err := Execute(ctx, db, cfg.Query, out); err != nil {
		log.Error("Failed to execute query", zap.Error(err))
		return err
	}

	log.Info("Query executed successfully")
	return nil
}
