package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tessera/internal/prooffunds/models"
	"tessera/pkg/domain"
)

const proofKeyPrefix = "pof:proof:"

// RedisStore keeps proofs in Redis as JSON blobs, one key per proof. Keys
// carry no TTL: a proof past its deadline is still readable so use attempts
// can be rejected with the expiry reason rather than a miss.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, proof models.Proof) error {
	raw, err := json.Marshal(proof)
	if err != nil {
		return fmt.Errorf("marshal proof: %w", err)
	}
	if err := s.client.Set(ctx, proofKeyPrefix+proof.ID.String(), raw, 0).Err(); err != nil {
		return fmt.Errorf("store proof: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id domain.ProofID) (models.Proof, error) {
	raw, err := s.client.Get(ctx, proofKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Proof{}, ErrNotFound
		}
		return models.Proof{}, fmt.Errorf("load proof: %w", err)
	}

	var proof models.Proof
	if err := json.Unmarshal(raw, &proof); err != nil {
		return models.Proof{}, fmt.Errorf("unmarshal proof: %w", err)
	}
	return proof, nil
}

// markUsedRetries bounds optimistic-lock retries when concurrent writers
// touch the same proof key.
const markUsedRetries = 5

// MarkUsed sets the flag under WATCH so the read-check-write is atomic: a
// concurrent flip aborts the transaction and the retry observes the used
// proof.
func (s *RedisStore) MarkUsed(ctx context.Context, id domain.ProofID) error {
	key := proofKeyPrefix + id.String()

	flip := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return fmt.Errorf("load proof: %w", err)
		}

		var proof models.Proof
		if err := json.Unmarshal(raw, &proof); err != nil {
			return fmt.Errorf("unmarshal proof: %w", err)
		}
		if proof.Used {
			return ErrAlreadyUsed
		}
		proof.Used = true

		payload, err := json.Marshal(proof)
		if err != nil {
			return fmt.Errorf("marshal proof: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	for i := 0; i < markUsedRetries; i++ {
		err := s.client.Watch(ctx, flip, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("mark proof used: too much contention on %s", id)
}
