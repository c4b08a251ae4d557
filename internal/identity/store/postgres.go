package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tessera/internal/identity/models"
	"tessera/pkg/domain"
)

// Schema:
//
//	CREATE TABLE identities (
//	    key        TEXT PRIMARY KEY,
//	    controller TEXT NOT NULL,
//	    delegates  TEXT[] NOT NULL DEFAULT '{}',
//	    document   TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);

// PostgresStore persists identities in PostgreSQL via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, identity models.Identity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO identities (key, controller, delegates, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		identity.Key.String(),
		identity.Controller.String(),
		identity.DelegateList(),
		identity.Document,
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key domain.Address) (models.Identity, error) {
	var (
		identity  models.Identity
		keyRaw    string
		ctrlRaw   string
		delegates []string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT key, controller, delegates, document, created_at, updated_at
		FROM identities WHERE key = $1`,
		key.String(),
	).Scan(&keyRaw, &ctrlRaw, &delegates, &identity.Document, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, ErrNotFound
		}
		return models.Identity{}, fmt.Errorf("select identity: %w", err)
	}

	identity.Key = domain.Address(keyRaw)
	identity.Controller = domain.Address(ctrlRaw)
	identity.Delegates = make(map[domain.Address]bool, len(delegates))
	for _, d := range delegates {
		identity.Delegates[domain.Address(d)] = true
	}
	return identity, nil
}

func (s *PostgresStore) Update(ctx context.Context, identity models.Identity) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE identities
		SET controller = $2, delegates = $3, document = $4, updated_at = $5
		WHERE key = $1`,
		identity.Key.String(),
		identity.Controller.String(),
		identity.DelegateList(),
		identity.Document,
		identity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
