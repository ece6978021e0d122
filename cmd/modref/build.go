package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ircdocs/modref/pkg/moddata"
	"github.com/ircdocs/modref/pkg/search"
	"github.com/ircdocs/modref/pkg/site"
	"github.com/ircdocs/modref/pkg/templating"
)

var (
	buildIndex  bool
	buildSource string
	buildOutput string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render the documentation tree into the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := NewConfigManager(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg := cm.Get()
		if buildSource != "" {
			cfg.Site.SourceDir = buildSource
		}
		if buildOutput != "" {
			cfg.Site.OutputDir = buildOutput
		}
		logger := newLogger(cfg.Server.LogLevel)

		tm, err := templating.NewManager(logger, *cfg.Templates, cfg.Server.TemplateDir)
		if err != nil {
			return fmt.Errorf("failed to initialize templates: %w", err)
		}
		loader, err := moddata.NewLoader(moddata.DefaultCacheSize, false)
		if err != nil {
			return err
		}

		var db *sql.DB
		if buildIndex {
			dbFile, _, _ := strings.Cut(cfg.Server.DatabasePath, "?")
			if err = os.MkdirAll(filepath.Dir(dbFile), 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			if db, err = initDB(cfg.Server.DatabasePath); err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() {
				_ = db.Close()
			}()
			if err = search.SetupSchema(db); err != nil {
				return err
			}
		}

		builder := site.NewBuilder(logger, loader, tm, *cfg.Site, db)
		report, err := builder.Build(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("build %s: %d pages, %d modules, %d assets in %s\n",
			report.BuildID, report.Pages, report.Modules, report.Assets, report.Duration)
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildIndex, "index", false, "update the search index while building")
	buildCmd.Flags().StringVar(&buildSource, "source", "", "override the docs source directory")
	buildCmd.Flags().StringVar(&buildOutput, "output", "", "override the site output directory")
}
