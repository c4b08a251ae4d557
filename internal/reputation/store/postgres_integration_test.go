//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tessera/internal/reputation/models"
	"tessera/internal/reputation/store"
	"tessera/pkg/domain"
	"tessera/pkg/testutil/containers"
)

const reputationSchema = `
CREATE TABLE IF NOT EXISTS reputation_profiles (
    identity       TEXT PRIMARY KEY,
    consumer_score BIGINT NOT NULL DEFAULT 0,
    provider_score BIGINT NOT NULL DEFAULT 0,
    last_update    TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS reputation_product_scores (
    identity TEXT NOT NULL REFERENCES reputation_profiles(identity),
    product  TEXT NOT NULL,
    score    BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (identity, product)
);
CREATE TABLE IF NOT EXISTS reputation_action_weights (
    identity TEXT NOT NULL,
    action   TEXT NOT NULL,
    weight   BIGINT NOT NULL,
    PRIMARY KEY (identity, action)
);`

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), reputationSchema)
	s.store = store.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(),
		"reputation_product_scores", "reputation_profiles", "reputation_action_weights"))
}

func testProfile(identity string) models.Profile {
	profile := models.NewProfile(domain.Address(identity))
	profile.ConsumerScore = 120
	profile.ProviderScore = 340
	profile.LastUpdate = time.Now().UTC().Truncate(time.Microsecond)
	profile.ProductScores[domain.ProductHashOf("lamps")] = 80
	return profile
}

func (s *PostgresStoreSuite) TestSaveAndGetProfile() {
	ctx := context.Background()
	want := testProfile("0xalice")
	s.Require().NoError(s.store.SaveProfile(ctx, want))

	got, err := s.store.GetProfile(ctx, "0xalice")
	s.Require().NoError(err)
	s.Equal(want.ConsumerScore, got.ConsumerScore)
	s.Equal(want.ProviderScore, got.ProviderScore)
	s.True(want.LastUpdate.Equal(got.LastUpdate))
	s.Equal(int64(80), got.ProductScores[domain.ProductHashOf("lamps")])
}

func (s *PostgresStoreSuite) TestSaveIsUpsert() {
	ctx := context.Background()
	profile := testProfile("0xbob")
	s.Require().NoError(s.store.SaveProfile(ctx, profile))

	profile.ConsumerScore = 999
	profile.ProductScores[domain.ProductHashOf("lamps")] = 5
	s.Require().NoError(s.store.SaveProfile(ctx, profile))

	got, err := s.store.GetProfile(ctx, "0xbob")
	s.Require().NoError(err)
	s.Equal(int64(999), got.ConsumerScore)
	s.Equal(int64(5), got.ProductScores[domain.ProductHashOf("lamps")])
}

func (s *PostgresStoreSuite) TestMissingProfile() {
	_, err := s.store.GetProfile(context.Background(), "0xghost")
	s.Require().ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestWeights() {
	ctx := context.Background()
	action := domain.ActionIDOf("SALE_COMPLETED")

	weight, err := s.store.GetWeight(ctx, "0xalice", action)
	s.Require().NoError(err)
	s.Zero(weight)

	s.Require().NoError(s.store.SetWeight(ctx, "0xalice", action, 10))
	s.Require().NoError(s.store.SetWeight(ctx, "0xalice", action, 25))

	weight, err = s.store.GetWeight(ctx, "0xalice", action)
	s.Require().NoError(err)
	s.Equal(int64(25), weight)

	weight, err = s.store.GetWeight(ctx, "0xbob", action)
	s.Require().NoError(err)
	s.Zero(weight)
}
