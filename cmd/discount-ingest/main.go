// Command discount-ingest loads bulk promo code drops into the discounts
// table. Marketing supplies several large gzipped code lists; a code is
// accepted only when it appears in at least two of them, which filters out
// the junk rows each individual export contains. Accepted codes become
// code-gated discounts, with per-code rules read from an optional JSON file.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/discount"
	"github.com/harsh-expnovateur/zenveda-backend/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	numFiles      = 3
	progressEvery = 10_000_000
	minCodeLen    = 6
	maxCodeLen    = 12
)

// codeRule describes the discount to create for an accepted code.
type codeRule struct {
	name         string
	typ          discount.Type
	percentage   decimal.Decimal
	flatAmount   decimal.Decimal
	minCartValue decimal.Decimal
}

var defaultRule = codeRule{
	name:       "Promo code: 10% off",
	typ:        discount.TypeCouponCode,
	percentage: decimal.NewFromInt(10),
}

// fileResult holds candidate codes found in a single file during pass 2.
type fileResult struct {
	candidates map[string]uint
}

func main() {
	var (
		dataDir     string
		rulesFile   string
		databaseURL string
		validDays   int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing promocodesN.gz files")
	flag.StringVar(&rulesFile, "rules-file", "", "optional JSON file mapping codes to discount rules")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&validDays, "valid-days", 90, "validity window in days for ingested codes")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, rulesFile, databaseURL, validDays); err != nil {
		slog.Error("discount ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("discount ingest completed successfully")
}

func run(ctx context.Context, dataDir, rulesFile, databaseURL string, validDays int) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("promocodes%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	rules, err := loadRules(rulesFile)
	if err != nil {
		return errors.Wrap(err, "load rules")
	}

	// Pass 1: build one bloom filter per file, concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: find codes appearing in 2+ files.
	slog.Info("pass 2: finding accepted codes")

	validCodes, err := findValidCodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find valid codes")
	}

	slog.Info("accepted codes found", slog.Int("count", len(validCodes)))

	if len(validCodes) == 0 {
		slog.Info("no codes to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := postgres.NewDiscountRepository(pool)
	return writeDiscounts(ctx, repo, validCodes, rules, validDays)
}

// loadRules parses the optional per-code rules file. The format is one JSON
// object keyed by code:
//
//	{"DIWALI25": {"name": "Diwali 25% off", "type": "coupon_code",
//	              "percentage": "25", "minCartValue": "999"}}
func loadRules(path string) (map[string]codeRule, error) {
	rules := make(map[string]codeRule)
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, code string) error {
		rule := defaultRule
		if err := d.Obj(func(d *jx.Decoder, field string) error {
			switch field {
			case "name":
				s, err := d.Str()
				if err != nil {
					return err
				}
				rule.name = s
			case "type":
				s, err := d.Str()
				if err != nil {
					return err
				}
				rule.typ = discount.Type(s)
			case "percentage":
				return decodeDecimal(d, &rule.percentage)
			case "flatAmount":
				return decodeDecimal(d, &rule.flatAmount)
			case "minCartValue":
				return decodeDecimal(d, &rule.minCartValue)
			default:
				return d.Skip()
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "rule for %s", code)
		}
		if rule.typ != discount.TypeCouponCode && rule.typ != discount.TypeFlatPriceOff {
			return errors.Errorf("rule for %s: type %q is not code-gated", code, rule.typ)
		}
		rules[code] = rule
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	return rules, nil
}

// decodeDecimal accepts either a JSON string or a bare number.
func decodeDecimal(d *jx.Decoder, dst *decimal.Decimal) error {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		raw = s
	default:
		n, err := d.Num()
		if err != nil {
			return err
		}
		raw = n.String()
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return errors.Wrapf(err, "parse decimal %q", raw)
	}
	*dst = v
	return nil
}

// buildBloomFilters creates one bloom filter per file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(code string) {
			if len(code) >= minCodeLen && len(code) <= maxCodeLen {
				filter.AddString(code)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress",
						slog.Int("file", idx+1),
						slog.Uint64("codes", count),
					)
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_codes", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findValidCodes re-streams each file and checks codes against OTHER files'
// bloom filters. A code is accepted if it appears in 2 or more files.
func findValidCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all files.
	merged := make(map[string]uint)
	for _, r := range results {
		for code, mask := range r.candidates {
			merged[code] |= mask
		}
	}

	var valid []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			valid = append(valid, code)
		}
	}

	return valid, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(code string) {
			if len(code) < minCodeLen || len(code) > maxCodeLen {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("codes", count),
				)
			}

			// Check if this code appears in any OTHER file's bloom filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(code) {
					candidates[code] |= fileBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_codes", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = fileResult{candidates: candidates}
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeDiscounts upserts all accepted codes as code-gated discounts.
func writeDiscounts(ctx context.Context, repo *postgres.DiscountRepository, codes []string, rules map[string]codeRule, validDays int) error {
	slog.Info("writing discounts to database", slog.Int("count", len(codes)))

	now := time.Now()
	end := now.AddDate(0, 0, validDays)

	for i, code := range codes {
		rule, ok := rules[code]
		if !ok {
			rule = defaultRule
		}

		d := &discount.Discount{
			Name:         rule.name,
			Type:         rule.typ,
			Code:         code,
			Percentage:   rule.percentage,
			FlatAmount:   rule.flatAmount,
			MinCartValue: rule.minCartValue,
			StartDate:    now,
			EndDate:      end,
		}
		if err := repo.UpsertCoupon(ctx, d); err != nil {
			return errors.Wrapf(err, "upsert discount %s", code)
		}

		if (i+1)%100 == 0 || i+1 == len(codes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}

	return nil
}
