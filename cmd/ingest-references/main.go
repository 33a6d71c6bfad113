package main

import (
	"context"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"visar-backend/app"
	"visar-backend/config"
	"visar-backend/logger"
	"visar-backend/models"
	"visar-backend/service"

	"go.uber.org/zap"
)

var supportedExt = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
}

// ingest-references loads a directory of reference petitions. Files under a
// "successful" or "unsuccessful" subdirectory take that category; others use
// -category.
func main() {
	dir := flag.String("dir", "./reference_petitions", "directory of reference petitions")
	visaType := flag.String("visa-type", "", "visa type recorded on every document")
	category := flag.String("category", string(models.CategorySuccessful), "category for files outside a category subdirectory")
	concurrency := flag.Int("concurrency", 4, "documents ingested in parallel")
	flag.Parse()

	log := logger.Bootstrap()
	defer log.Sync()

	cfg := config.MustLoad(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer c.Close()

	reqs, err := collect(*dir, models.VisaType(*visaType), models.Category(*category))
	if err != nil {
		log.Fatal("Failed to read directory", zap.String("dir", *dir), zap.Error(err))
	}
	if len(reqs) == 0 {
		log.Warn("No reference documents found", zap.String("dir", *dir))
		return
	}
	log.Info("Ingesting reference documents", zap.Int("count", len(reqs)))

	results, err := c.Ingestion.BulkIngest(ctx, reqs, *concurrency)

	indexed := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Indexed {
			indexed++
		} else {
			log.Warn("Stored but not indexed; run cmd/reindex later", zap.String("filename", r.Document.Filename))
		}
	}
	if err != nil {
		log.Error("Some documents failed", zap.Error(err))
	}
	log.Info("Ingestion complete", zap.Int("files", len(reqs)), zap.Int("indexed", indexed))
}

func collect(root string, visaType models.VisaType, fallback models.Category) ([]service.IngestRequest, error) {
	var reqs []service.IngestRequest
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supportedExt[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		category := fallback
		if parent := models.Category(filepath.Base(filepath.Dir(path))); parent.Valid() {
			category = parent
		}

		reqs = append(reqs, service.IngestRequest{
			Filename: filepath.Base(path),
			Data:     data,
			CaseType: visaType,
			Category: category,
		})
		return nil
	})
	return reqs, err
}
