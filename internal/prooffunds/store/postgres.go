package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tessera/internal/prooffunds/models"
	"tessera/pkg/domain"
)

// Schema:
//
//	CREATE TABLE proofs (
//	    id       TEXT PRIMARY KEY,
//	    owner    TEXT NOT NULL,
//	    amount   NUMERIC NOT NULL,
//	    token_id BIGINT NOT NULL DEFAULT 0,
//	    expiry   TIMESTAMPTZ NOT NULL,
//	    used     BOOLEAN NOT NULL DEFAULT FALSE
//	);

// PostgresStore persists proofs in PostgreSQL via pgx. Amounts round-trip
// through NUMERIC as decimal strings so 18-decimal values survive intact.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, proof models.Proof) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO proofs (id, owner, amount, token_id, expiry, used)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		proof.ID.String(),
		proof.Owner.String(),
		proof.Amount.String(),
		int64(proof.TokenID),
		proof.Expiry,
		proof.Used,
	)
	if err != nil {
		return fmt.Errorf("insert proof: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.ProofID) (models.Proof, error) {
	var (
		proof      models.Proof
		idRaw      string
		ownerRaw   string
		amountRaw  string
		tokenIDRaw int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner, amount::TEXT, token_id, expiry, used
		FROM proofs WHERE id = $1`,
		id.String(),
	).Scan(&idRaw, &ownerRaw, &amountRaw, &tokenIDRaw, &proof.Expiry, &proof.Used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Proof{}, ErrNotFound
		}
		return models.Proof{}, fmt.Errorf("select proof: %w", err)
	}

	amount, ok := new(big.Int).SetString(amountRaw, 10)
	if !ok {
		return models.Proof{}, fmt.Errorf("parse proof amount %q", amountRaw)
	}
	proof.ID = domain.ProofID(idRaw)
	proof.Owner = domain.Address(ownerRaw)
	proof.Amount = amount
	proof.TokenID = domain.TokenID(tokenIDRaw)
	return proof, nil
}

// MarkUsed flips the flag only when it is still clear, so concurrent use
// attempts resolve to exactly one winner inside the database.
func (s *PostgresStore) MarkUsed(ctx context.Context, id domain.ProofID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE proofs SET used = TRUE WHERE id = $1 AND used = FALSE`,
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("mark proof used: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// No row flipped: either the proof is missing or it was used already.
	var used bool
	err = s.pool.QueryRow(ctx, `SELECT used FROM proofs WHERE id = $1`, id.String()).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("check proof state: %w", err)
	}
	if used {
		return ErrAlreadyUsed
	}
	return fmt.Errorf("mark proof used: update affected no rows")
}
