// Command migrate applies pending SQL migrations to the postgres
// database. SQLite deployments create their schema at startup and do not
// need it.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/nabahlab/nabah/internal/config"
	"github.com/nabahlab/nabah/internal/database"
	"github.com/nabahlab/nabah/internal/logging"
)

func main() {
	dir := flag.String("dir", "./migrations", "migrations directory")
	flag.Parse()

	log := logging.New(slog.LevelInfo)
	cfg := config.Load()

	db, err := database.NewDB(database.Config{
		Type:       cfg.DB.Type,
		Host:       cfg.DB.Host,
		Port:       cfg.DB.Port,
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Name:       cfg.DB.Name,
		SQLitePath: cfg.DB.SQLitePath,
	})
	if err != nil {
		log.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(*dir); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied", "dir", *dir, "db_type", cfg.DB.Type)
}
