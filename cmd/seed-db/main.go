package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"

	"github.com/xenking/pizzeria/internal/domain/auth"
	"github.com/xenking/pizzeria/internal/domain/catalog"
	"github.com/xenking/pizzeria/internal/handler"
	"github.com/xenking/pizzeria/internal/storage/postgres"
)

// seedFile is the layout of the seed document.
type seedFile struct {
	Pizzas []catalog.Pizza `json:"pizzas"`
	Users  []seedUser      `json:"users"`
}

type seedUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	APIKey string `json:"apiKey"`
}

func main() {
	var (
		databaseURL  string
		seedPath     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/seed.json", "path to seed JSON file, optionally gzip-compressed (.gz)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PIZZERIA_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PIZZERIA_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath, pepper string) error {
	seed, err := loadSeed(seedPath)
	if err != nil {
		return err
	}

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

	slog.Info("upserting pizzas", slog.Int("count", len(seed.Pizzas)))
	if err := postgres.NewCatalogRepository(pool).Upsert(ctx, seed.Pizzas); err != nil {
		return errors.Wrap(err, "seed pizzas")
	}

	if err := seedUsers(ctx, postgres.NewUserRepository(pool), seed.Users, []byte(pepper)); err != nil {
		return errors.Wrap(err, "seed users")
	}

	return nil
}

// userStore is the subset of the user repository the seeder writes to.
type userStore interface {
	UpsertUser(ctx context.Context, u auth.User) error
	UpsertAPIKey(ctx context.Context, id, hash, userID string) error
}

func seedUsers(ctx context.Context, users userStore, seed []seedUser, pepper []byte) error {
	for _, u := range seed {
		if err := users.UpsertUser(ctx, auth.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.ID)
		}
		if u.APIKey != "" {
			if err := users.UpsertAPIKey(ctx, "key-"+u.ID, handler.HashAPIKey(pepper, u.APIKey), u.ID); err != nil {
				return errors.Wrapf(err, "upsert api key for %s", u.ID)
			}
		}

		slog.Info("upserted user", slog.String("id", u.ID), slog.String("role", u.Role))
	}
	return nil
}

// loadSeed reads the seed document at path, decompressing .gz files.
func loadSeed(path string) (*seedFile, error) {
	slog.Info("reading seed file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open seed file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return decodeSeed(r)
}

func decodeSeed(r io.Reader) (*seedFile, error) {
	var seed seedFile
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, errors.Wrap(err, "parse seed JSON")
	}
	for i, p := range seed.Pizzas {
		if p.ID == "" || p.Name == "" {
			return nil, errors.Errorf("pizza #%d: id and name are required", i)
		}
		if p.Price.IsNegative() {
			return nil, errors.Errorf("pizza %s: negative price", p.ID)
		}
	}
	for i, u := range seed.Users {
		if u.ID == "" {
			return nil, errors.Errorf("user #%d: id is required", i)
		}
	}
	return &seed, nil
}
