package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pizzeria/internal/domain/auth"
	"github.com/xenking/pizzeria/internal/handler"
)

const sample = `{
	"pizzas": [{"id": "m", "name": "Margherita", "price": "299.5", "veggies": ["Basil"], "active": true}],
	"users": [{"id": "u1", "name": "Alice", "role": "admin", "apiKey": "secret"}]
}`

func TestLoadSeed(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(plain, []byte(sample), 0o600))

	gzPath := filepath.Join(dir, "seed.json.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{plain, gzPath} {
		seed, err := loadSeed(path)
		require.NoError(t, err, path)
		require.Len(t, seed.Pizzas, 1)
		assert.True(t, decimal.RequireFromString("299.5").Equal(seed.Pizzas[0].Price))
		assert.Equal(t, []string{"Basil"}, seed.Pizzas[0].Veggies)
		require.Len(t, seed.Users, 1)
		assert.Equal(t, "secret", seed.Users[0].APIKey)
	}
}

func TestLoadSeed_RepoFile(t *testing.T) {
	seed, err := loadSeed(filepath.Join("..", "..", "db", "seed", "seed.json"))
	require.NoError(t, err)
	assert.NotEmpty(t, seed.Pizzas)
	assert.NotEmpty(t, seed.Users)
}

func TestDecodeSeed_Invalid(t *testing.T) {
	for _, doc := range []string{
		`{"pizzas": [{"name": "no id"}]}`,
		`{"pizzas": [{"id": "x", "name": "X", "price": "-1"}]}`,
		`{"users": [{"name": "no id"}]}`,
		`[`,
	} {
		_, err := decodeSeed(strings.NewReader(doc))
		assert.Error(t, err, doc)
	}
}

type recordingUsers struct {
	users []auth.User
	keys  map[string]string
}

func (r *recordingUsers) UpsertUser(_ context.Context, u auth.User) error {
	r.users = append(r.users, u)
	return nil
}

func (r *recordingUsers) UpsertAPIKey(_ context.Context, _, hash, userID string) error {
	r.keys[userID] = hash
	return nil
}

func TestSeedUsers(t *testing.T) {
	rec := &recordingUsers{keys: map[string]string{}}
	pepper := []byte("pepper")

	err := seedUsers(context.Background(), rec, []seedUser{
		{ID: "u1", Name: "Alice", Role: auth.RoleAdmin, APIKey: "secret"},
		{ID: "u2", Name: "Bob", Role: "user"},
	}, pepper)
	require.NoError(t, err)

	require.Len(t, rec.users, 2)
	assert.Equal(t, handler.HashAPIKey(pepper, "secret"), rec.keys["u1"])
	assert.NotContains(t, rec.keys, "u2")
}
