package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pizzeria/internal/domain/auth"
)

const (
	getUserSQL = `SELECT id, name, email, role FROM users WHERE id = $1`

	findAPIKeySQL = `SELECT k.id, k.key_hash, u.id, u.name, u.email, u.role
		FROM api_keys k
		JOIN users u ON u.id = k.user_id
		WHERE k.key_hash = $1 AND k.active`

	upsertUserSQL = `INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, user_id) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash, user_id = EXCLUDED.user_id, active = TRUE`
)

var (
	_ auth.Repository = (*UserRepository)(nil)
	_ auth.Directory  = (*UserRepository)(nil)
)

// UserRepository resolves users and their API keys.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindUser returns the user with the given id or auth.ErrUserNotFound.
func (r *UserRepository) FindUser(ctx context.Context, id string) (*auth.User, error) {
	var u auth.User
	err := r.pool.QueryRow(ctx, getUserSQL, id).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, errors.Wrapf(err, "get user %q", id)
	}
	return &u, nil
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash together
// with the user it belongs to. It returns an error wrapping pgx.ErrNoRows
// when no matching key exists.
func (r *UserRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	var k auth.APIKeyInfo
	err := r.pool.QueryRow(ctx, findAPIKeySQL, hash).Scan(
		&k.ID, &k.KeyHash, &k.User.ID, &k.User.Name, &k.User.Email, &k.User.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrap(err, "api key not found")
		}
		return nil, errors.Wrap(err, "find api key by hash")
	}
	return &k, nil
}

// UpsertUser creates or replaces a user.
func (r *UserRepository) UpsertUser(ctx context.Context, u auth.User) error {
	if _, err := r.pool.Exec(ctx, upsertUserSQL, u.ID, u.Name, u.Email, u.Role); err != nil {
		return errors.Wrapf(err, "upsert user %q", u.ID)
	}
	return nil
}

// UpsertAPIKey stores an API key hash for userID.
func (r *UserRepository) UpsertAPIKey(ctx context.Context, id, hash, userID string) error {
	if _, err := r.pool.Exec(ctx, upsertAPIKeySQL, id, hash, userID); err != nil {
		return errors.Wrapf(err, "upsert api key %q", id)
	}
	return nil
}
