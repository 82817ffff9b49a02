// Command discount-expirer flips active discounts whose end date has passed
// to inactive. Intended to run on a schedule (cron or a platform job); the
// pricing engine also re-checks date windows itself, so a missed run never
// applies a lapsed promotion.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/harsh-expnovateur/zenveda-backend/internal/storage/postgres"
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		slog.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	expired, err := postgres.NewDiscountRepository(pool).ExpireEnded(ctx, time.Now())
	if err != nil {
		slog.Error("expire discounts", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("discount expiry completed", slog.Int64("expired", expired))
}
