// Command server runs the authorization gateway: the plugin registry, the
// access evaluators, and the group membership manager behind one HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"certgate/pkg/platform/audit"
	"certgate/pkg/platform/audit/publisher"
	auditkafka "certgate/pkg/platform/audit/publishers/kafka"
	auditmemory "certgate/pkg/platform/audit/store/memory"
	auditpostgres "certgate/pkg/platform/audit/store/postgres"

	"certgate/internal/directory"
	"certgate/internal/directory/cache"
	dirmodels "certgate/internal/directory/models"
	"certgate/internal/directory/secrets"
	dirmemory "certgate/internal/directory/store/memory"
	dirpostgres "certgate/internal/directory/store/postgres"
	"certgate/internal/evaluator"
	evalhandler "certgate/internal/evaluator/handler"
	"certgate/internal/members"
	membershandler "certgate/internal/members/handler"
	membersmetrics "certgate/internal/members/metrics"
	"certgate/internal/platform/config"
	"certgate/internal/platform/httpserver"
	"certgate/internal/platform/logger"
	"certgate/internal/registry"
	registryhandler "certgate/internal/registry/handler"
	registrymetrics "certgate/internal/registry/metrics"
	"certgate/internal/registry/models"
	httptransport "certgate/internal/transport/http"
)

const defaultRegistryFile = "conf/registry.cfg"

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if cfg.SigningKey == "" {
		log.Error("CERTGATE_SIGNING_KEY must be set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := config.LoadEngine(cfg.EngineConfig)
	if err != nil {
		log.Error("unable to load engine config", "error", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()

	// Directory: postgres when configured, in-memory otherwise.
	var dir directory.Directory
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("unable to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store := dirpostgres.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Error("unable to apply directory schema", "error", err)
			os.Exit(1)
		}
		dir = store
	} else {
		log.Warn("no database configured, using in-memory directory")
		store := dirmemory.NewInMemory()
		if err := seedBootstrapAdmin(ctx, store, log); err != nil {
			log.Error("unable to seed bootstrap admin", "error", err)
			os.Exit(1)
		}
		dir = store
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("unable to parse redis URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		dir = cache.NewMembership(dir, client, cache.WithLogger(log))
	}

	auditStore, cleanupAudit, err := buildAuditStore(ctx, cfg, log)
	if err != nil {
		log.Error("unable to set up audit sink", "error", err)
		os.Exit(1)
	}
	defer cleanupAudit()

	auditor := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
	)
	defer auditor.Close()

	// Plugin registry with the built-in evaluator descriptor seeded on first
	// boot.
	registryFile := cfg.RegistryFile
	if registryFile == "" {
		registryFile = defaultRegistryFile
	}
	pluginRegistry := registry.New(
		registry.WithLogger(log),
		registry.WithMetrics(registrymetrics.New(promRegistry)),
	)
	if err := pluginRegistry.Init(ctx, engine, registryFile); err != nil {
		log.Error("unable to load plugin registry", "error", err)
		os.Exit(1)
	}
	if _, ok := pluginRegistry.PluginInfo("evaluator", evaluator.GroupType); !ok {
		pluginRegistry.AddPluginInfo(ctx, "evaluator", evaluator.GroupType, &models.PluginInfo{
			Name:        "Group Evaluator",
			Description: "group membership evaluator",
			ClassName:   "evaluators.GroupAccessEvaluator",
		}, true)
	}

	evaluators := evaluator.NewRegistry(evaluator.WithLogger(log))
	evaluators.Register(evaluator.NewGroupEvaluator(dir, evaluator.WithGroupLogger(log)))

	membersService := members.NewService(dir, engine,
		members.WithLogger(log),
		members.WithAuditPublisher(auditor),
		members.WithMetrics(membersmetrics.New(promRegistry)),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:     log,
		SigningKey: []byte(cfg.SigningKey),
		Gatherer:   promRegistry,
		Handlers: []httptransport.Registrar{
			membershandler.New(membersService, log),
			registryhandler.New(pluginRegistry, log),
			evalhandler.New(evaluators, log),
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting certgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	pluginRegistry.Shutdown()
}

// seedBootstrapAdmin provisions the bootstrap admin and its group so a fresh
// in-memory deployment is usable immediately. The generated credential is
// logged once; there is no other way to recover it.
func seedBootstrapAdmin(ctx context.Context, dir directory.Admin, log *slog.Logger) error {
	password := os.Getenv("CERTGATE_BOOTSTRAP_ADMIN_PASSWORD")
	if password == "" {
		generated, err := secrets.Generate()
		if err != nil {
			return err
		}
		password = generated
		log.Info("generated bootstrap admin credential", "uid", "admin", "password", password)
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return err
	}

	if err := dir.CreateUser(ctx, &dirmodels.User{
		ID:           "admin",
		FullName:     "Bootstrap Administrator",
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}); err != nil {
		return err
	}
	if err := dir.CreateGroup(ctx, &dirmodels.Group{
		Name:        "Administrators",
		Description: "built-in administrators group",
		CreatedAt:   time.Now(),
	}); err != nil {
		return err
	}
	return dir.AddUserToGroup(ctx, "Administrators", "admin")
}

// buildAuditStore picks the audit sink: kafka when brokers are configured,
// the postgres outbox when only a database is available, and an in-memory
// buffer for development.
func buildAuditStore(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Store, func(), error) {
	if cfg.KafkaBrokers != "" {
		sink, err := auditkafka.New(strings.Split(cfg.KafkaBrokers, ","), cfg.AuditTopic,
			auditkafka.WithLogger(log))
		if err != nil {
			return nil, nil, err
		}
		if err := sink.EnsureTopic(ctx, 1); err != nil {
			sink.Close()
			return nil, nil, err
		}
		return sink, sink.Close, nil
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := auditpostgres.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil
	}

	log.Warn("no audit sink configured, events stay in memory")
	return auditmemory.NewInMemoryStore(), func() {}, nil
}
