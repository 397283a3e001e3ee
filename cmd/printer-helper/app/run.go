package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/configs"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/adapter/cache"
	httpapi "github.com/Bodzaman/cottage-tandoori-printer-helper/internal/adapter/http"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/adapter/http/middleware"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/adapter/kafka"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/adapter/observ"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/adapter/queue"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/adapter/repo"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/adapter/transport"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/adapter/ws"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/escpos"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/logging"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Server   *http.Server
	Registry *usecase.Registry
	Log      *slog.Logger

	cfg     configs.Config
	workers []func(ctx context.Context)
}

// InitWithConfig wires every component. Optional infrastructure (redis,
// rabbitmq, kafka, mysql) is only dialled when enabled in cfg.
func InitWithConfig(ctx context.Context, cfg configs.Config) (*App, func(), error) {
	logger := logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	a := &App{Log: logger, cfg: cfg}

	// printer transport + registry
	t, err := newTransport(cfg)
	if err != nil {
		return fail(fmt.Errorf("printer transport: %w", err))
	}
	reg := usecase.NewRegistry(t, usecase.RegistryConfig{
		DiscoveryTimeout: cfg.Printer.DiscoveryTimeout,
		OpenTimeout:      cfg.Printer.OpenTimeout,
		WriteTimeout:     cfg.Printer.WriteTimeout,
		VendorID:         cfg.Printer.VendorID,
		VendorName:       cfg.Printer.VendorName,
	}, logging.New("registry"))
	closers = append(closers, reg.Disconnect)
	a.Registry = reg

	formatter, err := newFormatter(cfg)
	if err != nil {
		return fail(err)
	}

	hub := ws.NewHub(logging.New("ws"))
	a.workers = append(a.workers, hub.Run)
	publishers := []usecase.JobPublisher{observ.NewJobMetrics(), hub}
	opts := []usecase.ServiceOption{usecase.WithServiceLogger(logging.New("print"))}

	// idempotency: redis when enabled and reachable, else in-process
	var idem usecase.IdempotencyStore = cache.NewMemoryIdempotencyStore(cfg.Idempotency.TTL)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unreachable, using in-memory idempotency", "addr", cfg.Redis.Addr, "error", err)
			_ = rdb.Close()
		} else {
			closers = append(closers, func() { _ = rdb.Close() })
			idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
			publishers = append(publishers, cache.NewRedisJobCache(rdb, 24*time.Hour))
		}
	}
	opts = append(opts, usecase.WithIdempotency(idem))

	// rabbitmq: job events out, print requests in
	var rabbitIn *amqp091.Channel
	if cfg.Rabbit.Enabled {
		conn, err := amqp091.Dial(cfg.Rabbit.URL)
		if err != nil {
			return fail(fmt.Errorf("rabbitmq dial: %w", err))
		}
		closers = append(closers, func() { _ = conn.Close() })
		pubCh, err := conn.Channel()
		if err != nil {
			return fail(fmt.Errorf("rabbitmq channel: %w", err))
		}
		if err := queue.DeclareTopology(pubCh, cfg.Rabbit.Exchange, cfg.Rabbit.IntakeQueue); err != nil {
			return fail(err)
		}
		publishers = append(publishers, queue.NewRabbitJobPublisher(pubCh, cfg.Rabbit.Exchange, cfg.Rabbit.RoutingKey))
		if rabbitIn, err = conn.Channel(); err != nil {
			return fail(fmt.Errorf("rabbitmq channel: %w", err))
		}
	}

	// mysql job archive
	if cfg.MySQL.Enabled {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = db.Close() })
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			return fail(fmt.Errorf("mysql ping: %w", err))
		}
		jobRepo := repo.NewMySQLJobRepo(db)
		if err := jobRepo.EnsureSchema(ctx); err != nil {
			return fail(err)
		}
		opts = append(opts, usecase.WithArchive(jobRepo))
	}

	opts = append(opts, usecase.WithPublishers(publishers...))
	svc := usecase.NewPrintService(reg, usecase.NewJobLog(cfg.Jobs.Retention), formatter, opts...)

	if rabbitIn != nil {
		h := queue.NewPrintRequestHandler(svc)
		router := queue.NewRouter(rabbitIn, queue.WithLogger(logging.New("rabbitmq")))
		router.Register(cfg.Rabbit.IntakeQueue, queue.JSONHandler[queue.PrintRequestMsg]{HandleFunc: h.HandlePrintRequest})
		if err := router.Start(ctx); err != nil {
			return fail(fmt.Errorf("rabbitmq consume: %w", err))
		}
	}

	// kafka: auto-print kitchen tickets for placed orders
	if cfg.Kafka.Enabled {
		grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
		if err != nil {
			return fail(fmt.Errorf("kafka group: %w", err))
		}
		closers = append(closers, func() { _ = grp.Close() })
		consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.Topic}, kafka.NewOrderPlacedHandler(svc).Handle)
		a.workers = append(a.workers, func(ctx context.Context) {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("kafka consumer stopped", "error", err)
			}
		})
	}

	// http
	routerOpts := []httpapi.RouterOption{
		httpapi.WithLogger(logging.New("http")),
		httpapi.WithJobFeed(hub.Serve),
	}
	if cfg.Security.Enabled {
		routerOpts = append(routerOpts, httpapi.WithAuth(middleware.NewAuthz(cfg), httpapi.NewTokenHandler(cfg)))
	}
	h := httpapi.NewPrinterHandler(reg, svc, httpapi.ServiceInfo{Name: cfg.App.Name, Version: cfg.App.Version})
	a.Server = &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      httpapi.NewRouter(h, routerOpts...),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return a, cleanup, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, w := range a.workers {
		wg.Add(1)
		go func(w func(context.Context)) {
			defer wg.Done()
			w(ctx)
		}(w)
	}

	if a.cfg.Printer.AutoConnect {
		go a.autoConnect(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("printer-helper listening", "addr", a.Server.Addr, "transport", a.cfg.Printer.Transport, "version", a.cfg.App.Version)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	timeout := a.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Log.Warn("http shutdown", "error", err)
	}
	wg.Wait()
	a.Log.Info("printer-helper stopped")
	return runErr
}

func (a *App) autoConnect(ctx context.Context) {
	p, err := a.Registry.AutoConnect(ctx, a.cfg.Printer.DefaultPrinter)
	if err != nil {
		a.Log.Warn("auto-connect failed; waiting for /connect", "error", err)
		return
	}
	a.Log.Info("auto-connected", "printer_id", p.ID, "address", p.Address)
}

func newTransport(cfg configs.Config) (usecase.Transport, error) {
	switch cfg.Printer.Transport {
	case "simulated":
		return transport.NewSimulated(nil, logging.New("simulated-printer")), nil
	case "network":
		targets := make([]transport.NetworkTarget, 0, len(cfg.Printer.Network))
		for _, t := range cfg.Printer.Network {
			targets = append(targets, transport.NetworkTarget{Name: t.Name, Address: t.Address})
		}
		return transport.NewNetwork(targets), nil
	case "serial":
		return transport.NewSerial(cfg.Printer.SerialBaud, cfg.Printer.SerialUSBOnly), nil
	case "usb":
		return transport.NewUSB(cfg.Printer.VendorID)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Printer.Transport)
	}
}

func newFormatter(cfg configs.Config) (*escpos.Formatter, error) {
	opts := []escpos.Option{escpos.WithWidth(cfg.Printer.PaperWidth)}
	if tz := cfg.Receipt.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("receipt timezone: %w", err)
		}
		opts = append(opts, escpos.WithLocation(loc))
	}
	if cfg.Receipt.Currency != "" {
		opts = append(opts, escpos.WithCurrency(cfg.Receipt.Currency))
	}
	if cfg.Receipt.Name != "" {
		opts = append(opts, escpos.WithTitle(cfg.Receipt.Name))
	}
	if len(cfg.Receipt.Address) > 0 {
		opts = append(opts, escpos.WithAddress(cfg.Receipt.Address...))
	}
	return escpos.New(opts...), nil
}
