// Command forget-me-not is an interactive console for location-based
// reminders: add reminders for places, report positions, and get alerted
// when a position falls within a reminder's radius. It also keeps a due-date
// todo list and announces overdue todos.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/notexe/forget-me-not/internal/app"
	"github.com/notexe/forget-me-not/internal/config"
	"github.com/notexe/forget-me-not/internal/logging"
	"github.com/notexe/forget-me-not/internal/repl"
	"github.com/notexe/forget-me-not/internal/ui"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", config.GetDefaultConfigPath(), "Path to configuration file")
	backend := flag.String("store", "", "Storage backend (sqlite, redis, memory)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Apply CLI flag overrides
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *noColor {
		cfg.UI.ColoredOutput = false
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("exiting", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	replInstance, err := repl.NewREPL(cfg, logger)
	if err != nil {
		return err
	}

	spinner := ui.NewSpinner(os.Stdout, cfg.UI.ColoredOutput)
	spinner.Start(fmt.Sprintf("Loading reminders from %s...", cfg.Store.Backend))

	engine, err := app.New(ctx, cfg, logger,
		app.WithConsoleOutput(replInstance.Output()),
		app.WithResultHandler(replInstance.HandleResult),
	)
	if err != nil {
		spinner.StopWithError("Could not load reminders")
		replInstance.Stop()
		return err
	}
	spinner.StopWithMessage(fmt.Sprintf("Loaded %d reminders", engine.Reminders.Count()))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := engine.Close(closeCtx); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	replInstance.Attach(engine)
	engine.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		replInstance.Stop()
		return nil
	})
	g.Go(func() error {
		defer stop()
		return replInstance.Start(gctx)
	})

	return g.Wait()
}
