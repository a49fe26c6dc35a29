package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Dmitrij-bot/storefront/config"
	grpc2 "github.com/Dmitrij-bot/storefront/internal/grpc"
	"github.com/Dmitrij-bot/storefront/internal/journal"
	"github.com/Dmitrij-bot/storefront/internal/preferences"
	"github.com/Dmitrij-bot/storefront/internal/repository"
	"github.com/Dmitrij-bot/storefront/internal/session"
	"github.com/Dmitrij-bot/storefront/internal/usecase"
	"github.com/Dmitrij-bot/storefront/pkg/httpclient"
	"github.com/Dmitrij-bot/storefront/pkg/kafkaSender"
	"github.com/Dmitrij-bot/storefront/pkg/lyfecycle"
	"github.com/Dmitrij-bot/storefront/pkg/metrics"
	"github.com/Dmitrij-bot/storefront/pkg/postgres"
	"github.com/Dmitrij-bot/storefront/pkg/redis"
)

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	prompter usecase.StorePrompter

	metrics *metrics.ClientMetrics
	repo    *repository.BackendRepository
	cart    *usecase.CartManager
	session *session.Session
	health  *grpc2.Server

	cmps []cmp

	mu      sync.Mutex
	running []cmp
}

type cmp struct {
	Service lyfecycle.Lyfecycle
	Name    string
}

func New(cfg config.Config, logger *zap.Logger, prompter usecase.StorePrompter) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{cfg: cfg, logger: logger, prompter: prompter}
}

// Start builds the components and starts them in order. Optional
// infrastructure (Postgres journal, Kafka relay, Redis preferences, gRPC
// health, metrics endpoint) is only wired when configured.
func (app *App) Start(ctx context.Context) error {
	if err := app.build(); err != nil {
		return err
	}

	okCh, errCh := make(chan struct{}), make(chan error, 1)

	go func() {
		for _, c := range app.cmps {
			app.logger.Info("component is starting", zap.String("component", c.Name))

			if err := c.Service.Start(ctx); err != nil {
				err = fmt.Errorf("cannot start %s: %w", c.Name, err)
				app.logger.Error("component failed to start", zap.String("component", c.Name), zap.Error(err))
				errCh <- err
				return
			}

			app.mu.Lock()
			app.running = append(app.running, c)
			app.mu.Unlock()

			app.logger.Info("component started", zap.String("component", c.Name))
		}
		close(okCh)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("application start interrupted: %w", ctx.Err())
	case err := <-errCh:
		return err
	case <-okCh:
		app.logger.Info("application started")
		return nil
	}
}

func (app *App) build() error {
	if app.cart != nil {
		return errors.New("application is already built")
	}

	log := app.logger
	app.metrics = metrics.NewClientMetrics()

	client := httpclient.New(app.cfg.API, httpclient.NewMemoryTokenStore(), app.metrics, log.Named("http"))
	app.repo = repository.NewBackendRepository(client)

	opts := []usecase.Option{
		usecase.WithLogger(log.Named("cart")),
		usecase.WithMetrics(app.metrics),
		usecase.WithPrompter(app.prompter),
	}

	if app.cfg.Postgres.Enabled() {
		db := postgres.NewDB(app.cfg.Postgres)
		events := journal.New(db.DB, log.Named("journal"))
		opts = append(opts, usecase.WithJournal(events))

		app.cmps = append(app.cmps,
			cmp{db, "postgres"},
			cmp{events, "cart journal"},
		)

		if app.cfg.Kafka.Enabled() {
			app.cmps = append(app.cmps, cmp{app.relay(events), "kafka relay"})
		}
	} else if app.cfg.Kafka.Enabled() {
		log.Warn("kafka relay needs the postgres journal, skipping it")
	}

	app.cart = usecase.New(app.repo, opts...)

	var cities preferences.Store = preferences.NewMemoryStore()
	if app.cfg.Redis.Enabled() {
		rdb := redis.NewRedisDB(app.cfg.Redis)
		cities = preferences.NewRedisStore(rdb, app.cfg.KeyPrefix)
		app.cmps = append(app.cmps, cmp{rdb, "redis"})
	}

	app.session = session.New(app.repo, client.Tokens(), app.cart, cities, log.Named("session"))
	client.SetSignOutCallback(app.session.SignOut)

	if app.cfg.GRPC.Enabled() {
		app.health = grpc2.NewGRPCServer(app.cfg.GRPC, log.Named("grpc"))
		app.cmps = append(app.cmps, cmp{app.health, "grpc health"})
	}

	if app.cfg.Metrics.Addr != "" {
		app.cmps = append(app.cmps, cmp{metrics.NewServer(app.cfg.Metrics, app.metrics, log.Named("metrics")), "metrics server"})
	}

	return nil
}

// relay creates the producer lazily so a missing broker shows up as a start
// failure of the relay component.
func (app *App) relay(src kafkaSender.Source) lyfecycle.Lyfecycle {
	var sender *kafkaSender.Sender

	return lyfecycle.Funcs{
		OnStart: func(ctx context.Context) error {
			producer, err := kafkaSender.NewProducer(app.cfg.Kafka)
			if err != nil {
				return err
			}
			sender = kafkaSender.NewSender(src, producer, app.cfg.Kafka, app.logger.Named("kafka"))
			return sender.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			if sender == nil {
				return nil
			}
			return sender.Stop(ctx)
		},
	}
}

func (app *App) Cart() usecase.Interface {
	return app.cart
}

func (app *App) Session() *session.Session {
	return app.session
}

func (app *App) Orders() *repository.BackendRepository {
	return app.repo
}

// Health is nil when no gRPC host is configured.
func (app *App) Health() *grpc2.Server {
	return app.health
}

// Stop stops every started component in reverse order. A failing component
// does not keep the others running.
func (app *App) Stop(ctx context.Context) error {
	app.logger.Info("shutting down")

	app.mu.Lock()
	running := app.running
	app.running = nil
	app.mu.Unlock()

	done := make(chan error, 1)

	go func() {
		var errs error
		for i := len(running) - 1; i >= 0; i-- {
			c := running[i]
			app.logger.Info("stopping component", zap.String("component", c.Name))

			if err := c.Service.Stop(ctx); err != nil {
				app.logger.Error("component failed to stop", zap.String("component", c.Name), zap.Error(err))
				errs = multierr.Append(errs, fmt.Errorf("cannot stop %s: %w", c.Name, err))
			}
		}
		done <- errs
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("application stop interrupted: %w", ctx.Err())
	case err := <-done:
		if err == nil {
			app.logger.Info("application stopped")
		}
		return err
	}
}
