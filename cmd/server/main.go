package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tessera/internal/billing"
	billingmetrics "tessera/internal/billing/metrics"
	"tessera/internal/escrow"
	escrowmetrics "tessera/internal/escrow/metrics"
	"tessera/internal/events"
	"tessera/internal/identity"
	"tessera/internal/identity/guard"
	identitymetrics "tessera/internal/identity/metrics"
	identitystore "tessera/internal/identity/store"
	"tessera/internal/platform/config"
	"tessera/internal/platform/httpserver"
	"tessera/internal/platform/logger"
	"tessera/internal/platform/postgres"
	platformredis "tessera/internal/platform/redis"
	"tessera/internal/prooffunds"
	proofmetrics "tessera/internal/prooffunds/metrics"
	proofstore "tessera/internal/prooffunds/store"
	"tessera/internal/reputation"
	reputationmetrics "tessera/internal/reputation/metrics"
	reputationstore "tessera/internal/reputation/store"
	"tessera/internal/token"
	httptransport "tessera/internal/transport/http"
	"tessera/pkg/domain"
)

// Each funds-holding component owns one fixed ledger account, the way each
// contract owns its own balance.
const (
	escrowNativeCustody   = domain.Address("tessera:escrow:native")
	escrowFungibleCustody = domain.Address("tessera:escrow:fungible")
	escrowTokenCustody    = domain.Address("tessera:escrow:nonfungible")
	proofCustody          = domain.Address("tessera:prooffunds")
	billingCustody        = domain.Address("tessera:billing")

	eventsTopic = "tessera.events"

	fungibleSupply = 1_000_000_000
)

func main() {
	log := logger.New()
	if err := run(context.Background(), log, config.FromEnv()); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg config.Server) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	owner := domain.Address(cfg.OwnerAddress)

	pool, err := postgres.New(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	redisClient, err := platformredis.New(config.RedisFromEnv())
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var publisher events.Publisher
	if cfg.KafkaBrokers != "" {
		kafka, err := events.NewKafkaPublisher(cfg.KafkaBrokers, eventsTopic, events.WithKafkaLogger(log))
		if err != nil {
			return err
		}
		defer kafka.Close()
		publisher = kafka
	} else {
		log.Info("kafka not configured, recording events in memory")
		publisher = events.NewMemorySink()
	}

	var ids identitystore.Store = identitystore.NewInMemoryStore()
	if pool != nil {
		ids = identitystore.NewPostgres(pool)
	}
	registry, err := identity.New(ids,
		identity.WithLogger(log),
		identity.WithMetrics(identitymetrics.New()),
		identity.WithPublisher(publisher),
	)
	if err != nil {
		return err
	}
	g := guard.New(registry)

	ledger := token.NewNativeLedger()
	fungible := token.NewFungible(owner, domain.NewAmount(fungibleSupply))
	nonFungible := token.NewNonFungible()

	var scoreStore reputationstore.Store = reputationstore.NewInMemoryStore()
	if pool != nil {
		scoreStore = reputationstore.NewPostgres(pool)
	}
	scores, err := reputation.New(scoreStore, registry, owner,
		reputation.WithLogger(log),
		reputation.WithMetrics(reputationmetrics.New()),
		reputation.WithPublisher(publisher),
	)
	if err != nil {
		return err
	}

	escrowMetrics := escrowmetrics.New()
	newEscrow := func(custody domain.Address, mover escrow.AssetMover) (*escrow.Escrow, error) {
		return escrow.New(escrow.Config{
			Custody:     custody,
			Depositor:   domain.Address(cfg.EscrowDepositor),
			Beneficiary: domain.Address(cfg.EscrowBeneficiary),
			Arbiter:     domain.Address(cfg.EscrowArbiter),
		}, g, mover,
			escrow.WithLogger(log),
			escrow.WithMetrics(escrowMetrics),
			escrow.WithPublisher(publisher),
			escrow.WithRecorder(scores),
		)
	}

	nativeEscrow, err := newEscrow(escrowNativeCustody, escrow.NewNativeMover(ledger, escrowNativeCustody))
	if err != nil {
		return err
	}
	fungibleEscrow, err := newEscrow(escrowFungibleCustody, escrow.NewFungibleMover(fungible, escrowFungibleCustody))
	if err != nil {
		return err
	}
	tokenEscrow, err := newEscrow(escrowTokenCustody,
		escrow.NewNonFungibleMover(nonFungible, domain.TokenID(cfg.EscrowTokenID), escrowTokenCustody))
	if err != nil {
		return err
	}
	facade, err := reputation.NewFacade(scores, nativeEscrow, fungibleEscrow, tokenEscrow)
	if err != nil {
		return err
	}

	var proofs proofstore.Store = proofstore.NewInMemoryStore()
	switch {
	case redisClient != nil:
		proofs = proofstore.NewRedis(redisClient.Client)
	case pool != nil:
		proofs = proofstore.NewPostgres(pool)
	}
	proofMetrics := proofmetrics.New()
	fundsProofs, err := prooffunds.New(
		prooffunds.Config{Custody: proofCustody, Owner: owner},
		g,
		escrow.NewNativeMover(ledger, proofCustody),
		proofs,
		prooffunds.WithLogger(log),
		prooffunds.WithMetrics(proofMetrics),
		prooffunds.WithPublisher(publisher),
	)
	if err != nil {
		return err
	}
	tokenProofs, err := prooffunds.NewTokenService(
		prooffunds.Config{Custody: proofCustody, Owner: owner},
		g,
		nonFungible,
		proofs,
		prooffunds.WithTokenLogger(log),
		prooffunds.WithTokenMetrics(proofMetrics),
		prooffunds.WithTokenPublisher(publisher),
	)
	if err != nil {
		return err
	}

	collector, err := billing.New(
		billing.Config{Custody: billingCustody, Owner: owner, InitialFee: domain.NewAmount(int64(cfg.InitialFee))},
		registry,
		ledger,
		billing.WithLogger(log),
		billing.WithMetrics(billingmetrics.New()),
		billing.WithPublisher(publisher),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Identity:      registry,
		Escrows:       facade,
		Reputation:    scores,
		Proofs:        fundsProofs,
		TokenProofs:   tokenProofs,
		Billing:       collector,
		JWTSigningKey: []byte(cfg.JWTSigningKey),
		Owner:         owner,
	})

	srv := httpserver.New(cfg.Addr, router)
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
