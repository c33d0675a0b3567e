package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/cart-pricing/internal/catalog"
	"github.com/xenking/cart-pricing/internal/domain/product"
	"github.com/xenking/cart-pricing/internal/storage/memory"
	"github.com/xenking/cart-pricing/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		expected    uint
		dryRun      bool
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog files")
	flag.StringVar(&pattern, "pattern", "*.jsonl.gz", "glob of catalog files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&expected, "expected", 0, "expected number of distinct products, sizes the duplicate filter")
	flag.BoolVar(&dryRun, "dry-run", false, "decode and deduplicate without writing to the database")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		lg.Fatal("Database URL is required: set --database-url, DATABASE_URL or --dry-run")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	paths := flag.Args()
	if len(paths) == 0 {
		paths, err = filepath.Glob(filepath.Join(dataDir, pattern))
		if err != nil {
			lg.Fatal("Bad pattern", zap.Error(err))
		}
	}
	if len(paths) == 0 {
		lg.Fatal("No catalog files found", zap.String("dir", dataDir), zap.String("pattern", pattern))
	}

	if err := run(ctx, paths, databaseURL, expected, dryRun); err != nil {
		lg.Fatal("Catalog import failed", zap.Error(err))
	}
}

func run(ctx context.Context, paths []string, databaseURL string, expected uint, dryRun bool) error {
	lg := zctx.From(ctx)

	var repo product.Repository = memory.NewProductRepository()
	if !dryRun {
		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		repo = postgres.NewProductRepository(pool)
	}

	start := time.Now()
	stats, err := catalog.NewImporter(repo, expected).Import(ctx, paths)
	if err != nil {
		return err
	}
	lg.Info("Catalog import completed",
		zap.Int("files", stats.Files),
		zap.Int64("lines", stats.Lines),
		zap.Int64("imported", stats.Imported),
		zap.Int64("duplicates", stats.Duplicates),
		zap.Int64("invalid", stats.Invalid),
		zap.Bool("dry_run", dryRun),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}
