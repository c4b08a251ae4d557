// Package reputation implements the score ledger: per-identity consumer and
// provider scores moved by weighted actions, per-product scores, and lazy
// time decay. Nothing here runs on a timer; decay is settled whenever a
// profile is read or written.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"tessera/internal/escrow"
	"tessera/internal/events"
	"tessera/internal/identity/guard"
	"tessera/internal/reputation/metrics"
	"tessera/internal/reputation/models"
	"tessera/internal/reputation/store"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/requestcontext"
)

// Escrow settlement actions. Weights for both default to zero until the
// owner configures them, so settlements are score-neutral out of the box.
var (
	ActionEscrowReleased = domain.ActionIDOf("ESCROW_RELEASED")
	ActionEscrowRefunded = domain.ActionIDOf("ESCROW_REFUNDED")
)

// ErrNotAuthorized carries the ledger's rejection reason for score writes.
var ErrNotAuthorized = dErrors.New(dErrors.CodeUnauthorized, "Not authorized for this DID")

// Store is the persistence boundary the ledger writes through.
type Store = store.Store

type Service struct {
	store    Store
	registry guard.Registry
	owner    domain.Address

	// mu serializes read-modify-write cycles on profiles so concurrent
	// score updates cannot overwrite each other's deltas.
	mu sync.Mutex

	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// New builds the ledger. owner is the fixed administrative address allowed
// to configure action weights.
func New(st Store, registry guard.Registry, owner domain.Address, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("reputation store is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("identity registry is required")
	}
	if owner.IsZero() {
		return nil, fmt.Errorf("owner address is required")
	}

	svc := &Service{
		store:    st,
		registry: registry,
		owner:    owner,
		tracer:   otel.Tracer("tessera/reputation"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SetActionWeight configures the score delta an action applies to one
// identity. Owner only. The owner is a static address fixed at construction,
// not a registry lookup.
func (s *Service) SetActionWeight(ctx context.Context, caller, identity domain.Address, action domain.ActionID, weight int64) error {
	if caller != s.owner {
		return dErrors.New(dErrors.CodeUnauthorized, "Only owner can configure action weights")
	}
	if weight < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "action weight must be non-negative")
	}
	if err := s.store.SetWeight(ctx, identity, action, weight); err != nil {
		return err
	}

	s.metrics.IncrementWeightChanges()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "action weight set", "identity", identity, "action", action, "weight", weight)
	}
	return nil
}

// ActionWeight returns the weight configured for an action on identity,
// zero when unset.
func (s *Service) ActionWeight(ctx context.Context, identity domain.Address, action domain.ActionID) (int64, error) {
	return s.store.GetWeight(ctx, identity, action)
}

// UpdateScore moves the consumer or provider score of identity by the
// action's configured weight. The caller must be the identity's controller
// or a delegate. Pending decay is settled before the delta is applied;
// scores never go below zero.
func (s *Service) UpdateScore(ctx context.Context, caller, identity domain.Address, isProvider bool, action domain.ActionID, positive bool) error {
	if err := s.requireAuthorized(ctx, identity, caller); err != nil {
		return err
	}
	return s.applyScore(ctx, caller, identity, isProvider, action, positive)
}

// UpdateProductScore overwrites the score for one of identity's products.
// Controller or delegate only; product scores do not decay.
func (s *Service) UpdateProductScore(ctx context.Context, caller, identity domain.Address, product domain.ProductHash, score int64) error {
	if err := s.requireAuthorized(ctx, identity, caller); err != nil {
		return err
	}
	if score < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "product score must be non-negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	profile, err := s.profileForWrite(ctx, identity)
	if err != nil {
		return err
	}
	s.settleDecay(&profile, now)
	profile.ProductScores[product] = score
	profile.LastUpdate = now
	return s.store.SaveProfile(ctx, profile)
}

// CompleteProfile settles pending decay, persists it, and returns the
// profile with its current consumer score, provider score, and last-update
// stamp. An unknown identity reads as the zero profile.
func (s *Service) CompleteProfile(ctx context.Context, identity domain.Address) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.store.GetProfile(ctx, identity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.NewProfile(identity), nil
		}
		return models.Profile{}, err
	}

	// Reads advance LastUpdate only by whole decay periods, so repeated
	// reads inside one period neither reset nor double-apply decay.
	now := requestcontext.Now(ctx)
	if periods := s.settleDecayPartial(&profile, now); periods > 0 {
		if err := s.store.SaveProfile(ctx, profile); err != nil {
			return models.Profile{}, err
		}
	}
	return profile, nil
}

// ProductScore returns the stored score for one of identity's products,
// zero when unset or the identity is unknown.
func (s *Service) ProductScore(ctx context.Context, identity domain.Address, product domain.ProductHash) (int64, error) {
	profile, err := s.store.GetProfile(ctx, identity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return profile.ProductScores[product], nil
}

// RecordOutcome translates an escrow settlement into score movements: the
// depositor's consumer score and the beneficiary's provider score move by
// the matching action's weight. Release credits, refund debits. Called by
// the escrow after payout, so no caller guard applies.
func (s *Service) RecordOutcome(ctx context.Context, depositor, beneficiary domain.Address, outcome escrow.Outcome) error {
	action := ActionEscrowReleased
	positive := true
	if outcome == escrow.OutcomeRefunded {
		action = ActionEscrowRefunded
		positive = false
	}

	if err := s.applyScore(ctx, depositor, depositor, false, action, positive); err != nil {
		return err
	}
	return s.applyScore(ctx, beneficiary, beneficiary, true, action, positive)
}

func (s *Service) applyScore(ctx context.Context, actor, identity domain.Address, isProvider bool, action domain.ActionID, positive bool) error {
	ctx, span := s.tracer.Start(ctx, "reputation.applyScore")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	weight, err := s.store.GetWeight(ctx, identity, action)
	if err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	profile, err := s.profileForWrite(ctx, identity)
	if err != nil {
		return err
	}
	s.settleDecay(&profile, now)

	target := &profile.ConsumerScore
	role := "consumer"
	if isProvider {
		target = &profile.ProviderScore
		role = "provider"
	}
	if positive {
		*target += weight
	} else {
		*target = max(*target-weight, 0)
	}
	profile.LastUpdate = now

	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return err
	}

	s.metrics.IncrementScoreUpdate(role, positive)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "score updated",
			"identity", identity, "role", role, "positive", positive, "weight", weight)
	}
	return events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindScoreUpdated,
		Key:    identity.String(),
		Actor:  actor,
		Detail: role,
	})
}

// profileForWrite loads the profile, creating the zero profile for unknown
// identities so the first score write does not need a registration step.
func (s *Service) profileForWrite(ctx context.Context, identity domain.Address) (models.Profile, error) {
	profile, err := s.store.GetProfile(ctx, identity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.NewProfile(identity), nil
		}
		return models.Profile{}, err
	}
	return profile, nil
}

// settleDecay applies all pending decay ahead of a write. The caller stamps
// LastUpdate afterwards, which forgives the in-progress partial period.
func (s *Service) settleDecay(profile *models.Profile, now time.Time) {
	if profile.LastUpdate.IsZero() {
		return
	}
	elapsed := now.Sub(profile.LastUpdate)
	before := profile.ConsumerScore + profile.ProviderScore
	profile.ConsumerScore, _ = decayedScore(profile.ConsumerScore, elapsed)
	profile.ProviderScore, _ = decayedScore(profile.ProviderScore, elapsed)
	s.metrics.AddDecayedPoints(before - profile.ConsumerScore - profile.ProviderScore)
}

// settleDecayPartial applies pending decay for a read path, advancing
// LastUpdate only by the whole periods consumed. Returns the periods applied.
func (s *Service) settleDecayPartial(profile *models.Profile, now time.Time) int64 {
	if profile.LastUpdate.IsZero() {
		return 0
	}
	elapsed := now.Sub(profile.LastUpdate)
	before := profile.ConsumerScore + profile.ProviderScore
	var cp, pp int64
	profile.ConsumerScore, cp = decayedScore(profile.ConsumerScore, elapsed)
	profile.ProviderScore, pp = decayedScore(profile.ProviderScore, elapsed)
	periods := max(cp, pp)
	if periods > 0 {
		profile.LastUpdate = profile.LastUpdate.Add(time.Duration(periods) * decayPeriod)
	}
	s.metrics.AddDecayedPoints(before - profile.ConsumerScore - profile.ProviderScore)
	return periods
}

func (s *Service) requireAuthorized(ctx context.Context, identity, caller domain.Address) error {
	ok, err := s.registry.IsOwnerOrDelegate(ctx, identity, caller)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "authorization lookup failed")
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}
