package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ircdocs/modref/pkg/moddata"
	"github.com/ircdocs/modref/pkg/search"
	"github.com/ircdocs/modref/pkg/templating"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the built site and the management API",
	RunE: func(cmd *cobra.Command, args []string) error {
		for {
			restart, err := runServer()
			if err != nil {
				return err
			}
			if !restart {
				return nil
			}
		}
	},
}

// runServer brings up one server generation. A restart request tears
// everything down and returns true, so the caller can loop and rebuild
// the whole stack from the config file.
func runServer() (restart bool, err error) {
	cm, err := NewConfigManager(cfgPath)
	if err != nil {
		return false, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := cm.Get()

	logger := newLogger(cfg.Server.LogLevel)
	cm.SetLogger(logger)

	// The sqlite path may carry connection options after a '?'.
	dbFile, _, _ := strings.Cut(cfg.Server.DatabasePath, "?")
	if err = os.MkdirAll(filepath.Dir(dbFile), 0755); err != nil {
		return false, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := initDB(cfg.Server.DatabasePath)
	if err != nil {
		return false, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err = setupAuthSchema(db); err != nil {
		return false, fmt.Errorf("failed to setup auth schema: %w", err)
	}
	if err = search.SetupSchema(db); err != nil {
		return false, err
	}

	if err = os.MkdirAll(cfg.Server.TemplateDir, 0755); err != nil {
		return false, fmt.Errorf("failed to create template directory: %w", err)
	}
	tm, err := templating.NewManager(logger, *cfg.Templates, cfg.Server.TemplateDir)
	if err != nil {
		return false, fmt.Errorf("failed to initialize templates: %w", err)
	}
	cm.SetTemplateManager(tm)

	loader, err := moddata.NewLoader(moddata.DefaultCacheSize, false)
	if err != nil {
		return false, err
	}

	actionChan := make(chan serverAction, 1)
	srv := NewServer(logger, db, cm, tm, loader, actionChan)

	docsServer := &http.Server{Addr: cfg.Server.DocsAddr, Handler: srv.DocsMux()}
	apiServer := &http.Server{Addr: cfg.Server.ApiAddr, Handler: srv.ApiMux()}

	errChan := make(chan error, 2)
	go func() {
		logger.Info("Docs server listening", "addr", cfg.Server.DocsAddr)
		if serveErr := docsServer.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- fmt.Errorf("docs server failed: %w", serveErr)
		}
	}()
	go func() {
		logger.Info("API server listening", "addr", cfg.Server.ApiAddr)
		if serveErr := apiServer.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- fmt.Errorf("api server failed: %w", serveErr)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", "signal", sig.String())
	case action := <-actionChan:
		restart = action == actionRestart
		if restart {
			logger.Info("Restart requested via API")
		} else {
			logger.Info("Shutdown requested via API")
		}
	case err = <-errChan:
		logger.Error("Server error", "error", err)
		return false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := docsServer.Shutdown(ctx); shutdownErr != nil {
		logger.Error("Docs server shutdown failed", "error", shutdownErr)
	}
	if shutdownErr := apiServer.Shutdown(ctx); shutdownErr != nil {
		logger.Error("API server shutdown failed", "error", shutdownErr)
	}
	logger.Info("Shutdown complete")
	return restart, nil
}
