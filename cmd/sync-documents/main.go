// Command sync-documents embeds recent rows into the documents table so
// the assistant's retrieval stage has something to search. Requires the
// postgres backend.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/nabahlab/nabah/internal/chat"
	"github.com/nabahlab/nabah/internal/config"
	"github.com/nabahlab/nabah/internal/database"
	"github.com/nabahlab/nabah/internal/logging"
)

func main() {
	limit := flag.Int("limit", 500, "rows to index per table")
	flag.Parse()

	log := logging.New(slog.LevelInfo)
	cfg := config.Load()

	if cfg.DB.Type != "postgres" {
		log.Error("document sync needs the postgres backend", "db_type", cfg.DB.Type)
		os.Exit(1)
	}

	db, err := database.NewDB(database.Config{
		Type:     cfg.DB.Type,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Name:     cfg.DB.Name,
	})
	if err != nil {
		log.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	syncer := chat.NewSyncer(
		chat.NewHTTPEmbedder(cfg.EmbeddingBaseURL, cfg.EmbeddingModel),
		database.NewDocumentRepository(db),
		database.NewPersonRepository(db),
		database.NewAlertRepository(db),
		database.NewSpillRepository(db),
		log,
	)

	indexed, err := syncer.Sync(context.Background(), *limit)
	if err != nil {
		log.Error("sync failed", "indexed", indexed, "error", err)
		os.Exit(1)
	}
	log.Info("sync complete", "indexed", indexed)
}
