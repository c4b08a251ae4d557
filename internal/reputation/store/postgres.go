package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tessera/internal/reputation/models"
	"tessera/pkg/domain"
)

// Schema:
//
//	CREATE TABLE reputation_profiles (
//	    identity       TEXT PRIMARY KEY,
//	    consumer_score BIGINT NOT NULL DEFAULT 0,
//	    provider_score BIGINT NOT NULL DEFAULT 0,
//	    last_update    TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE reputation_product_scores (
//	    identity TEXT NOT NULL REFERENCES reputation_profiles(identity),
//	    product  TEXT NOT NULL,
//	    score    BIGINT NOT NULL DEFAULT 0,
//	    PRIMARY KEY (identity, product)
//	);
//
//	CREATE TABLE reputation_action_weights (
//	    identity TEXT NOT NULL,
//	    action   TEXT NOT NULL,
//	    weight   BIGINT NOT NULL,
//	    PRIMARY KEY (identity, action)
//	);

// PostgresStore persists reputation state in PostgreSQL via pgx. SaveProfile
// runs in a transaction so the profile row and its product scores move
// together.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetProfile(ctx context.Context, identity domain.Address) (models.Profile, error) {
	profile := models.NewProfile(identity)
	err := s.pool.QueryRow(ctx, `
		SELECT consumer_score, provider_score, last_update
		FROM reputation_profiles WHERE identity = $1`,
		identity.String(),
	).Scan(&profile.ConsumerScore, &profile.ProviderScore, &profile.LastUpdate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, fmt.Errorf("select reputation profile: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT product, score
		FROM reputation_product_scores WHERE identity = $1`,
		identity.String(),
	)
	if err != nil {
		return models.Profile{}, fmt.Errorf("select product scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productHex string
			score      int64
		)
		if err := rows.Scan(&productHex, &score); err != nil {
			return models.Profile{}, fmt.Errorf("scan product score: %w", err)
		}
		product, err := domain.ParseProductHash(productHex)
		if err != nil {
			return models.Profile{}, fmt.Errorf("decode product hash: %w", err)
		}
		profile.ProductScores[product] = score
	}
	if err := rows.Err(); err != nil {
		return models.Profile{}, fmt.Errorf("iterate product scores: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, profile models.Profile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save profile: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO reputation_profiles (identity, consumer_score, provider_score, last_update)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity) DO UPDATE SET
			consumer_score = EXCLUDED.consumer_score,
			provider_score = EXCLUDED.provider_score,
			last_update    = EXCLUDED.last_update`,
		profile.Identity.String(),
		profile.ConsumerScore,
		profile.ProviderScore,
		profile.LastUpdate,
	)
	if err != nil {
		return fmt.Errorf("upsert reputation profile: %w", err)
	}

	for product, score := range profile.ProductScores {
		_, err = tx.Exec(ctx, `
			INSERT INTO reputation_product_scores (identity, product, score)
			VALUES ($1, $2, $3)
			ON CONFLICT (identity, product) DO UPDATE SET score = EXCLUDED.score`,
			profile.Identity.String(),
			product.String(),
			score,
		)
		if err != nil {
			return fmt.Errorf("upsert product score: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWeight(ctx context.Context, identity domain.Address, action domain.ActionID) (int64, error) {
	var weight int64
	err := s.pool.QueryRow(ctx, `
		SELECT weight FROM reputation_action_weights WHERE identity = $1 AND action = $2`,
		identity.String(),
		action.String(),
	).Scan(&weight)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("select action weight: %w", err)
	}
	return weight, nil
}

func (s *PostgresStore) SetWeight(ctx context.Context, identity domain.Address, action domain.ActionID, weight int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reputation_action_weights (identity, action, weight)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity, action) DO UPDATE SET weight = EXCLUDED.weight`,
		identity.String(),
		action.String(),
		weight,
	)
	if err != nil {
		return fmt.Errorf("upsert action weight: %w", err)
	}
	return nil
}
