// Bulk-loads a support-ticket CSV into the vector index. Run once
// before serving, or whenever the corpus changes.
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"supportbot/config"
	"supportbot/loader"
	"supportbot/model"
	"supportbot/store"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("configuration error: ", err)
	}

	csvPath := cfg.DataCSVPath
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	if csvPath == "" {
		log.Fatal("no CSV given: set DATA_CSV_PATH or pass a path argument")
	}

	ctx := context.Background()
	pool, err := store.NewPostgresStore(ctx, cfg.ConnString())
	if err != nil {
		log.Fatal("error to connect to Postgres database", err)
	}
	defer pool.Close()

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error to create tables", err)
	}

	docs, err := loader.LoadCSV(csvPath)
	if err != nil {
		log.Fatal("error to load CSV", err)
	}
	log.Printf("Loaded %d documents from %s", len(docs), csvPath)

	embedder := model.NewHFEmbedder(cfg.EmbedURL, cfg.Token, cfg.EmbedTimeout)
	index := store.NewVectorIndex(pool, embedder, cfg.IndexBatchSize, cfg.IndexMaxDocs)

	if err := index.Index(ctx, docs); err != nil {
		log.Fatal("error to index documents", err)
	}

	count, err := index.Health(ctx)
	if err != nil {
		log.Fatal("error to verify index", err)
	}
	log.Printf("Vector index now contains %d documents", count)
}
