// Command server runs the trade lifecycle kernel: the transition engine and
// its HTTP surface, the automation trigger bus, and the outbox worker feeding
// the external Kafka topic.
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
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"tradelane/internal/audit"
	"tradelane/internal/automation"
	"tradelane/internal/engine"
	"tradelane/internal/events"
	"tradelane/internal/platform/config"
	"tradelane/internal/platform/httpserver"
	"tradelane/internal/platform/logger"
	"tradelane/internal/platform/metrics"
	"tradelane/internal/platform/redis"
	"tradelane/internal/token"
	"tradelane/internal/trade"
	tradestore "tradelane/internal/trade/store"
	handler "tradelane/internal/transport/http"
	txcontext "tradelane/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("kernel exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		trades tradestore.Store
		audits audit.Store
		outbox events.OutboxStore
		runner txcontext.Runner
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		trades = tradestore.NewPostgresStore(db)
		audits = audit.NewPostgresStore(db)
		outbox = events.NewPostgresOutbox(db)
		runner = txcontext.NewSQLRunner(db)
		log.Info("using postgres persistence")
	} else {
		trades = tradestore.NewInMemoryStore()
		audits = audit.NewInMemoryStore()
		outbox = events.NewInMemoryOutbox()
		runner = txcontext.PassthroughRunner{}
		log.Warn("POSTGRES_DSN not set, using in-memory persistence")
	}

	var cache audit.RecentCache
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		cache = audit.NewRedisCache(redisClient)
		log.Info("recent-events cache enabled")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	dispatcher := events.NewDispatcher(log)

	eng := engine.New(
		trades,
		audits,
		outbox,
		runner,
		trade.NewEvaluator(trade.NewTable()),
		dispatcher,
		m,
		log,
	)

	bus := automation.NewBus(eng, audits, automation.DefaultRules(), m, log)
	dispatcher.Subscribe(bus)

	tokens := token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer)
	reader := audit.NewReader(audits, cache, log)
	h := handler.New(eng, reader, tokens, log)
	srv := httpserver.New(cfg.Addr, handler.NewRouter(h, tokens))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("kernel listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		if err != nil {
			return err
		}
		worker := events.NewOutboxWorker(outbox, producer, log, m, cfg.Kafka.PollInterval)
		group.Go(func() error {
			defer producer.Close()
			log.Info("outbox worker started", "topic", cfg.Kafka.EventsTopic)
			if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Warn("KAFKA_BROKERS not set, external event feed disabled")
	}

	return group.Wait()
}
