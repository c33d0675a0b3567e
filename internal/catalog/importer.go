package catalog

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/cart-pricing/internal/domain/product"
)

const (
	defaultExpected = 1_000_000
	bloomFPR        = 0.001
	maxLineSize     = 1 << 20

	maxLoggedInvalid = 10
)

// ImportStats summarizes an import run.
type ImportStats struct {
	Files      int
	Lines      int64
	Imported   int64
	Duplicates int64
	Invalid    int64
}

// Importer loads gzipped JSON-lines catalog files into a product repository.
// Files are decoded concurrently; records are merged in file order and the
// first occurrence of an id wins.
type Importer struct {
	products product.Repository
	expected uint
}

// NewImporter returns an importer sized for roughly expected distinct ids.
func NewImporter(products product.Repository, expected uint) *Importer {
	if expected == 0 {
		expected = defaultExpected
	}
	return &Importer{products: products, expected: expected}
}

type fileResult struct {
	products []product.Product
	lines    int64
	invalid  int64
}

// Import reads every path and upserts the unique valid products.
func (im *Importer) Import(ctx context.Context, paths []string) (ImportStats, error) {
	lg := zctx.From(ctx)
	stats := ImportStats{Files: len(paths)}
	results := make([]fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			r, err := readFile(gctx, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			lg.Info("Decoded catalog file",
				zap.String("path", path),
				zap.Int64("lines", r.lines),
				zap.Int64("invalid", r.invalid),
			)
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	// The bloom filter answers "definitely new" for almost every id; only
	// its positives are confirmed against the exact set.
	filter := bloom.NewWithEstimates(im.expected, bloomFPR)
	seen := make(map[string]struct{})
	for _, r := range results {
		stats.Lines += r.lines
		stats.Invalid += r.invalid
		for _, p := range r.products {
			if filter.TestAndAddString(p.ID) {
				if _, dup := seen[p.ID]; dup {
					stats.Duplicates++
					continue
				}
			}
			seen[p.ID] = struct{}{}

			if err := im.products.Upsert(ctx, p); err != nil {
				return stats, errors.Wrapf(err, "upsert product %s", p.ID)
			}
			stats.Imported++
		}
	}
	return stats, nil
}

func readFile(ctx context.Context, path string) (fileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileResult{}, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return fileResult{}, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	return readLines(ctx, gz)
}

// readLines decodes newline-delimited product objects from r. Blank lines
// are ignored; malformed lines are counted and skipped.
func readLines(ctx context.Context, r io.Reader) (fileResult, error) {
	var res fileResult
	lg := zctx.From(ctx)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		res.lines++

		p, err := DecodeProduct(jx.DecodeBytes(line))
		if err != nil {
			res.invalid++
			if res.invalid <= maxLoggedInvalid {
				lg.Warn("Skipping invalid catalog line", zap.Int64("line", res.lines), zap.Error(err))
			}
			continue
		}
		res.products = append(res.products, p)
	}
	if err := scanner.Err(); err != nil {
		return res, errors.Wrap(err, "scan")
	}
	return res, nil
}
