package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"bindery/internal/binding/cache"
	"bindery/internal/binding/handler"
	bindingmetrics "bindery/internal/binding/metrics"
	"bindery/internal/binding/service"
	bindingstore "bindery/internal/binding/store/binding"
	"bindery/internal/binding/store/proposal"
	jwttoken "bindery/internal/jwt_token"
	"bindery/internal/platform/config"
	"bindery/internal/platform/httpserver"
	"bindery/internal/platform/logger"
	"bindery/internal/platform/metrics"
	"bindery/internal/platform/middleware"
	platformredis "bindery/internal/platform/redis"
	rolesservice "bindery/internal/roles/service"
	rolesstore "bindery/internal/roles/store"
	id "bindery/pkg/domain"
	audit "bindery/pkg/platform/audit"
	auditkafka "bindery/pkg/platform/audit/kafka"
	"bindery/pkg/platform/audit/publisher"
	"bindery/pkg/platform/audit/store/logsink"
)

// main wires configuration, stores, the audit pipeline and the HTTP server.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	owner, err := id.ParseAccountID(cfg.OwnerAccount)
	if err != nil {
		log.Error("invalid owner account", "error", err)
		os.Exit(1)
	}

	// Stores: postgres when a DSN is configured, in-memory otherwise.
	var (
		proposals   service.ProposalStore
		bindings    service.BindingStore
		roles       rolesservice.Store
		serviceOpts []service.Option
		db          *sql.DB
	)
	if cfg.Postgres.DSN != "" {
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to ping postgres", "error", err)
			os.Exit(1)
		}

		proposalStore := proposal.NewPostgres(db)
		bindingStore := bindingstore.NewPostgres(db)
		roleStore := rolesstore.NewPostgres(db)
		for _, ensure := range []func(context.Context) error{
			proposalStore.EnsureSchema,
			bindingStore.EnsureSchema,
			func(ctx context.Context) error { return roleStore.EnsureSchema(ctx, owner) },
		} {
			if err := ensure(ctx); err != nil {
				log.Error("failed to apply schema", "error", err)
				os.Exit(1)
			}
		}
		proposals, bindings, roles = proposalStore, bindingStore, roleStore
		serviceOpts = append(serviceOpts, service.WithTx(newPostgresTx(db, cfg.Postgres.TxTimeout)))
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		proposals = proposal.NewInMemory()
		bindings = bindingstore.NewInMemory()
		roles = rolesstore.NewInMemory(owner)
	}

	// Audit pipeline: Kafka when brokers are configured, EVENT_JSON log
	// lines otherwise.
	var sink audit.Store = logsink.New(log)
	var kafkaSink *auditkafka.Store
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err = auditkafka.New(ctx, auditkafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, log)
		if err != nil {
			log.Error("failed to connect kafka sink", "error", err)
			os.Exit(1)
		}
		sink = kafkaSink
	}
	pub := publisher.NewPublisher(sink, publisher.WithAsyncBuffer(256))

	// Optional reverse-lookup cache.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		serviceOpts = append(serviceOpts,
			service.WithLookupCache(cache.NewRedisLookupCache(redisClient, config.LookupCacheTTL, log)))
	}

	admin := rolesservice.NewAdminService(roles, pub)
	svc := service.NewBindingService(proposals, bindings, admin,
		append(serviceOpts,
			service.WithAuditPublisher(pub),
			service.WithMetrics(bindingmetrics.New()),
			service.WithProposalFee(cfg.ProposalFee),
		)...)

	httpMetrics := metrics.New()
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, "bindery", "bindery-api")
	h := handler.New(svc, admin, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log, httpMetrics))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens, log))
		h.Register(r)
	})

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting bindery", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	// drain buffered events before the sink goes away
	pub.Close()
	if kafkaSink != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := kafkaSink.Close(flushCtx); err != nil {
			log.Error("failed to flush kafka sink", "error", err)
		}
	}
	log.Info("bindery stopped")
}
