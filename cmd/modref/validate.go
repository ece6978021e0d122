package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ircdocs/modref/pkg/moddata"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every module description file for errors",
	Long: `validate parses every module description file with strict field
checking, so typos like "desciption" that a lenient load would silently
drop are reported. The exit status is non-zero if any file fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := NewConfigManager(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg := cm.Get()

		loader, err := moddata.NewLoader(moddata.DefaultCacheSize, true)
		if err != nil {
			return err
		}

		dir := filepath.Join(cfg.Site.SourceDir, cfg.Site.Version, "modules")
		paths, err := filepath.Glob(filepath.Join(dir, "*.yml"))
		if err != nil {
			return fmt.Errorf("bad module dir pattern: %w", err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no module files found under %s", dir)
		}
		sort.Strings(paths)

		failed := 0
		for _, path := range paths {
			if _, loadErr := loader.Load(path); loadErr != nil {
				fmt.Printf("FAIL %s: %v\n", filepath.Base(path), loadErr)
				failed++
			}
		}

		dataPath := filepath.Join(cfg.Site.SourceDir, cfg.Site.Version, "configuration", "_data.yml")
		if _, statErr := os.Stat(dataPath); statErr == nil {
			if _, loadErr := loader.LoadConfigTags(dataPath); loadErr != nil {
				fmt.Printf("FAIL %s: %v\n", filepath.Base(dataPath), loadErr)
				failed++
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files failed validation", failed, len(paths))
		}
		fmt.Printf("OK: %d module files validated\n", len(paths))
		return nil
	},
}
