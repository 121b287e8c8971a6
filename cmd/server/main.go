package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/labelkit/labelkit/internal/api"
	"github.com/labelkit/labelkit/internal/config"
	"github.com/labelkit/labelkit/internal/store"
)

func main() {
	cfg := config.Load()

	db, err := openDatabase(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Printf("close database: %v", cerr)
		}
	}()

	if err := store.RunMigrations(db, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	st, err := store.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}

	router := api.NewServer(cfg, st).Router()
	log.Printf("LabelKit server listening on %s", cfg.Addr)
	if err := router.Run(cfg.Addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openDatabase creates the data directory if needed and opens the SQLite
// file with a shared cache and a busy timeout for concurrent writers.
func openDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(path))
	return sql.Open("sqlite3", dsn)
}
