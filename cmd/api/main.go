package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/fastprodman/wagerengine/internal/accounts"
	"github.com/fastprodman/wagerengine/internal/api"
	"github.com/fastprodman/wagerengine/internal/infra/logging"
	"github.com/fastprodman/wagerengine/internal/infra/metrics"
	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/infra/tracing"
	balancespg "github.com/fastprodman/wagerengine/internal/repos/balances/postgres"
	holdspg "github.com/fastprodman/wagerengine/internal/repos/holds/postgres"
	"github.com/fastprodman/wagerengine/internal/services/authority"
	"github.com/fastprodman/wagerengine/internal/services/ledger"
	"github.com/fastprodman/wagerengine/internal/services/notify"
	"github.com/fastprodman/wagerengine/internal/services/resolver"
	"github.com/fastprodman/wagerengine/internal/services/sweeper"
	"github.com/fastprodman/wagerengine/internal/services/transactions"
	"github.com/fastprodman/wagerengine/internal/services/wagers"
	"github.com/fastprodman/wagerengine/pkg/envconf"
	"github.com/fastprodman/wagerengine/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON("wagerengine-api", cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	shutdownqueue.Add("tracing", shutdownqueue.Task(shutdownTracing))

	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	shutdownqueue.Add("postgres", func(context.Context) error { return db.Close() })

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewDBStatsCollector(db, "wagerengine"))
	m := metrics.New(reg)

	// --- Notifications ---
	broker := notify.NewBroker(notify.DefaultBuffer, m)
	publishers := notify.Fanout{}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		shutdownqueue.Add("redis", func(context.Context) error { return rdb.Close() })

		// every instance, this one included, receives events through the relay
		publishers = append(publishers, notify.NewRedisPublisher(rdb, cfg.Redis.Channel))
	} else {
		publishers = append(publishers, broker)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sink := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		shutdownqueue.Add("kafka", func(context.Context) error { return sink.Close() })
		publishers = append(publishers, sink)
	}

	// --- Services ---
	var acc accounts.Client = accounts.Nop{}
	if cfg.Accounts.URL != "" {
		acc = accounts.NewHTTPClient(cfg.Accounts.URL, cfg.Accounts.Timeout)
	}

	admins := authority.NewAdminSet(cfg.Engine.AdminIDs...)
	if len(admins) == 0 {
		slog.Warn("no admin ids configured; approvals and adjudication are disabled")
	}

	l := ledger.New(balancespg.New(db), holdspg.New(db), cfg.Engine.HouseAccount)

	txSrv := transactions.New(db, transactions.Deps{
		Ledger:       l,
		Accounts:     acc,
		Authority:    admins,
		Publisher:    publishers,
		Metrics:      m,
		Retry:        pgutils.DefaultRetryPolicy,
		Denomination: cfg.Engine.TxDenomination,
	})

	wagerSrv := wagers.New(db, wagers.Deps{
		Ledger:       l,
		Catalog:      wagers.DefaultCatalog(),
		Accounts:     acc,
		Publisher:    publishers,
		Metrics:      m,
		Retry:        pgutils.DefaultRetryPolicy,
		ResultWindow: cfg.Engine.ResultWindow,
	})

	resolverSrv := resolver.New(db, resolver.Deps{
		Ledger:    l,
		Authority: admins,
		Publisher: publishers,
		Metrics:   m,
		Retry:     pgutils.DefaultRetryPolicy,
	})

	sweep := sweeper.New(wagerSrv, resolverSrv, sweeper.Config{
		Interval:  cfg.Engine.SweepInterval,
		Batch:     cfg.Engine.SweepBatch,
		WagerWait: cfg.Engine.WagerWaitTimeout,
	})

	// --- HTTP server ---
	router := api.NewRouter(api.Services{
		Transactions: txSrv,
		Wagers:       wagerSrv,
		Resolver:     resolverSrv,
		Balances:     l,
		Events:       broker,
		Ping:         db.PingContext,
	}, m, reg)
	srv := api.NewServer(cfg.Port, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", serr)
		}
		return nil
	})

	// stops the server on a signal or when any peer fails; the shutdown
	// queue then closes the infrastructure in reverse order
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shut down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}
		return nil
	})

	g.Go(func() error { return sweep.Run(gctx) })

	if rdb != nil {
		g.Go(func() error { return notify.RunRedisRelay(gctx, rdb, cfg.Redis.Channel, broker) })
	}

	slog.Info("API started", "port", cfg.Port)

	return g.Wait()
}
