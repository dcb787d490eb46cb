package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garyxuan/lan-chat/internal/app/db"
)

// PostgresStore persists profiles to a user_profiles table, one upsert per
// mutation. Schema setup runs through the db package's embedded migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database, applies migrations, and returns
// a ready store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	pool, err := db.NewPool(dsn)
	if err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Load reads every stored profile.
func (p *PostgresStore) Load(ctx context.Context) (map[string]Profile, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, username, avatar_path FROM user_profiles`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user profiles: %w", err)
	}
	defer rows.Close()

	profiles := make(map[string]Profile)

	for rows.Next() {
		var profile Profile
		if err := rows.Scan(&profile.ID, &profile.Username, &profile.Avatar); err != nil {
			return nil, fmt.Errorf("failed to scan user profile row: %w", err)
		}
		profiles[profile.ID] = profile
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user profile rows: %w", err)
	}

	return profiles, nil
}

// Save upserts one profile.
func (p *PostgresStore) Save(ctx context.Context, profile Profile) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO user_profiles (id, username, avatar_path)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    avatar_path = EXCLUDED.avatar_path,
		    updated_at = now()`,
		profile.ID, profile.Username, profile.Avatar,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", profile.ID, err)
	}

	return nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

var _ Backend = (*PostgresStore)(nil)
