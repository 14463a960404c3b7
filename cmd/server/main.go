package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arborvote/arborvote/internal/api"
	"github.com/arborvote/arborvote/internal/arbitration"
	"github.com/arborvote/arborvote/internal/buildconfig"
	"github.com/arborvote/arborvote/internal/clock"
	"github.com/arborvote/arborvote/internal/config"
	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/identity"
	"github.com/arborvote/arborvote/internal/service"
	"github.com/arborvote/arborvote/internal/store"
	"github.com/arborvote/arborvote/internal/token"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger := newLogger(config.LogLevel())
	defer func() { _ = logger.Sync() }()

	logger.Info("starting arborvote",
		zap.String("version", buildconfig.Version()),
		zap.String("commit", buildconfig.Commit()))

	params, err := config.LoadParams()
	if err != nil {
		logger.Fatal("invalid engine parameters", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := map[string]api.HealthCheck{}
	ledger := store.NewLedger()

	var journal domain.JournalStore = store.NewMemoryJournal()
	if dbURL := config.DatabaseURL(); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		pg := store.NewPGJournalStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to prepare journal", zap.Error(err))
		}
		last, err := pg.LastSeq(ctx)
		if err != nil {
			logger.Fatal("failed to read journal sequence", zap.Error(err))
		}
		ledger.ResumeSequence(last)
		journal = pg
		health["database"] = pool.Ping
		logger.Info("journal backed by postgres")
	} else {
		logger.Info("journal kept in memory")
	}

	verified, err := config.VerifiedAddresses()
	if err != nil {
		logger.Fatal("invalid VERIFIED_ADDRESSES", zap.Error(err))
	}

	var oracle domain.IdentityOracle
	if addr := config.RedisAddr(); addr != "" {
		registry, err := identity.NewRedisRegistry(ctx, identity.RedisConfig{
			Addr:       addr,
			Password:   config.RedisPassword(),
			DB:         config.RedisDB(),
			Key:        config.IdentityRegistryKey(),
			TLSEnabled: config.RedisTLSEnabled(),
		})
		if err != nil {
			logger.Fatal("failed to connect to identity registry", zap.Error(err))
		}
		defer func() { _ = registry.Close() }()

		for _, a := range verified {
			if err := registry.Register(ctx, a); err != nil {
				logger.Fatal("failed to register verified address", zap.Error(err))
			}
		}
		oracle = registry
		health["identity"] = registry.Ping
		logger.Info("identity backed by redis", zap.String("addr", addr))
	} else {
		oracle = identity.NewAllowlist(verified...)
		logger.Info("identity backed by allowlist", zap.Int("verified", len(verified)))
	}

	escrow, err := config.EscrowAddress()
	if err != nil {
		logger.Fatal("invalid ESCROW_ADDRESS", zap.Error(err))
	}
	arbitrator, err := config.ArbitratorAddress()
	if err != nil {
		logger.Fatal("invalid ARBITRATOR_ADDRESS", zap.Error(err))
	}

	stake := token.NewLedger(escrow)
	if grant := config.StakeGrant(); grant > 0 {
		amount := uint256.NewInt(grant)
		for _, a := range verified {
			if err := stake.Mint(a, amount); err != nil {
				logger.Fatal("failed to mint stake grant", zap.Error(err))
			}
			stake.Approve(a, amount)
		}
	}
	court := arbitration.NewCourt(arbitrator)

	av, err := service.NewArborVote(service.Deps{
		Ledger:  ledger,
		Clock:   clock.NewSystem(),
		Journal: journal,
		Params:  params,
		Logger:  logger,

		IdentityTimeout: config.IdentityTimeout(),
	})
	if err != nil {
		logger.Fatal("failed to build arborvote", zap.Error(err))
	}
	if err := av.Initialize(service.Capabilities{
		Identity:   oracle,
		Token:      stake,
		Arbitrator: court,
		Escrow:     escrow,
	}); err != nil {
		logger.Fatal("failed to initialize arborvote", zap.Error(err))
	}
	court.Attach(av)

	app := api.NewApp(av, logger, api.Options{Health: health, Court: court})
	defer app.Close()
	app.Keeper.SetInterval(config.KeeperInterval())

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		app.Keeper.Start()
		<-gctx.Done()
		app.Keeper.Stop()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
