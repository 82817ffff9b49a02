package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/auth"
	"github.com/harsh-expnovateur/zenveda-backend/internal/storage/postgres"
)

type teaJSON struct {
	Name     string `json:"name"`
	Packages []struct {
		Name         string          `json:"name"`
		SellingPrice decimal.Decimal `json:"sellingPrice"`
		WeightGrams  int             `json:"weightGrams"`
	} `json:"packages"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or ZENVEDA_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ZENVEDA_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("ZENVEDA_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or ZENVEDA_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ZENVEDA_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, postgres.NewCatalogRepository(pool), catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedCatalog(ctx context.Context, repo *postgres.CatalogRepository, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var teas []teaJSON
	if err := json.Unmarshal(data, &teas); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("upserting teas", slog.Int("count", len(teas)))

	for _, t := range teas {
		teaID, err := repo.UpsertTea(ctx, t.Name)
		if err != nil {
			return errors.Wrapf(err, "upsert tea %s", t.Name)
		}

		for _, p := range t.Packages {
			if err := repo.UpsertPackage(ctx, teaID, p.Name, p.SellingPrice, p.WeightGrams); err != nil {
				return errors.Wrapf(err, "upsert package %s of tea %s", p.Name, t.Name)
			}
		}

		slog.Info("upserted tea",
			slog.Int64("id", teaID),
			slog.String("name", t.Name),
			slog.Int("packages", len(t.Packages)),
		)
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	info := &auth.APIKeyInfo{
		ID:      uuid.NewString(),
		KeyHash: auth.HashKey(apiKey, []byte(pepper)),
		Name:    "Admin key",
		Scopes:  []string{"admin"},
	}
	if err := repo.Upsert(ctx, info); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("name", info.Name))
	return nil
}
