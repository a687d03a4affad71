// Command server wires the deliberation platform: identity resolution, the
// policy core, the deliberation domain, the audit pipeline and the HTTP
// surface. Business logic lives in the internal service packages; main only
// assembles dependencies and runs the lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"agora/internal/audit"
	"agora/internal/audit/outbox"
	auditmemory "agora/internal/audit/store/memory"
	auditpostgres "agora/internal/audit/store/postgres"
	delibservice "agora/internal/deliberation/service"
	agentconfigstore "agora/internal/deliberation/store/agentconfig"
	deliberationstore "agora/internal/deliberation/store/deliberation"
	documentstore "agora/internal/deliberation/store/document"
	graphstore "agora/internal/deliberation/store/graph"
	messagestore "agora/internal/deliberation/store/message"
	participantstore "agora/internal/deliberation/store/participant"
	"agora/internal/identity/resolver"
	identityservice "agora/internal/identity/service"
	enrollmentstore "agora/internal/identity/store/enrollment"
	principalstore "agora/internal/identity/store/principal"
	"agora/internal/jwtauth"
	"agora/internal/platform/config"
	"agora/internal/platform/httpserver"
	"agora/internal/platform/logger"
	"agora/internal/platform/metrics"
	"agora/internal/platform/migrate"
	platformredis "agora/internal/platform/redis"
	"agora/internal/policy"
	httptransport "agora/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New()

	// With a PostgreSQL DSN the serializability-critical state (principals,
	// codes, deliberations, memberships, audit) is durable; without one
	// everything runs in memory for development.
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migrate.Up(db); err != nil {
			return err
		}
	}

	var (
		principals identityservice.PrincipalStore
		codes      identityservice.EnrollmentStore
		auditStore audit.Store
	)
	stores := delibservice.Stores{
		Messages:  messagestore.NewInMemory(),
		Graph:     graphstore.NewInMemory(),
		Configs:   agentconfigstore.NewInMemory(),
		Documents: documentstore.NewInMemory(),
	}
	identityOpts := []identityservice.Option{identityservice.WithLogger(log), identityservice.WithMetrics(m)}
	delibOpts := []delibservice.Option{delibservice.WithLogger(log)}

	if db != nil {
		principals = principalstore.NewPostgres(db)
		codes = enrollmentstore.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		stores.Deliberations = deliberationstore.NewPostgres(db)
		stores.Participants = participantstore.NewPostgres(db)
		identityOpts = append(identityOpts, identityservice.WithTx(identityservice.SQLTx{DB: db}))
		delibOpts = append(delibOpts, delibservice.WithTx(identityservice.SQLTx{DB: db}))
	} else {
		principals = principalstore.NewInMemory()
		codes = enrollmentstore.NewInMemory()
		auditStore = auditmemory.NewInMemoryStore()
		stores.Deliberations = deliberationstore.NewInMemory()
		stores.Participants = participantstore.NewInMemory()
	}

	auditor := audit.NewPublisher(auditStore, audit.WithLogger(log), audit.WithFailureCounter(m))
	identityOpts = append(identityOpts, identityservice.WithAuditRecorder(auditor))
	delibOpts = append(delibOpts, delibservice.WithAuditRecorder(auditor))

	identity := identityservice.New(principals, codes, identityOpts...)

	// Policy core: role oracle and participation index, optionally fronted
	// by redis.
	oracle := policy.NewRoleOracle(principals)
	var index policy.Index = policy.NewParticipationIndex(stores.Participants)

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		cached := policy.NewCachedIndex(index, redisClient.Client, policy.WithCacheLogger(log))
		index = cached
		delibOpts = append(delibOpts, delibservice.WithParticipationInvalidator(cached))
	}
	evaluator := policy.NewEvaluator(oracle, index, policy.WithDecisionMetrics(m))

	deliberations := delibservice.New(stores, evaluator, delibOpts...)

	validator := jwtauth.NewValidator(cfg.JWTSigningKey)
	principalResolver := resolver.New(validator, principals, codes,
		resolver.WithLogger(log), resolver.WithProvisioner(identity))

	if cfg.BootstrapAdminCode != "" {
		if err := identity.SeedAdminCode(ctx, cfg.BootstrapAdminCode); err != nil {
			return err
		}
	}

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Identity:      httptransport.NewIdentityHandler(identity, validator),
		Deliberations: httptransport.NewDeliberationHandler(deliberations),
		Audit:         httptransport.NewAuditHandler(auditor, principals),
		Resolver:      principalResolver,
		Logger:        log,
		Health: func() error {
			if db != nil {
				return db.Ping()
			}
			return nil
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Outbox worker: drains committed audit events to Kafka.
	if db != nil && len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err := outbox.NewKafkaClient(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()
		if err := outbox.EnsureTopic(ctx, kafkaClient, cfg.AuditTopic, 1); err != nil {
			return err
		}
		worker := outbox.NewWorker(outbox.NewPostgresSource(db), kafkaClient, cfg.AuditTopic,
			outbox.WithLogger(log))
		g.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
