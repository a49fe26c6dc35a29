package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Dmitrij-bot/storefront/config"
	"github.com/Dmitrij-bot/storefront/internal/app"
	"github.com/Dmitrij-bot/storefront/internal/delivery/shell"
)

const (
	startTimeout = 15 * time.Second
	stopTimeout  = 10 * time.Second
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a JSON config file")
	pflag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console := shell.NewConsole(os.Stdin, os.Stdout)
	application := app.New(cfg, logger, console)

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()

		if err := application.Stop(stopCtx); err != nil {
			logger.Error("failed to stop application", zap.Error(err))
		}
	}()

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := application.Start(startCtx); err != nil {
		return err
	}

	if city, ok, err := application.Session().CurrentCity(ctx); err != nil {
		logger.Warn("failed to load saved city", zap.Error(err))
	} else if ok {
		console.Printf("city: %s - %s\n", city.Name, city.UF)
	}

	sh := shell.New(console, application.Cart(), application.Session(), application.Orders(), logger.Named("shell"))

	done := make(chan error, 1)
	go func() { done <- sh.Run(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("signal received")
		return nil
	case err := <-done:
		return err
	}
}
