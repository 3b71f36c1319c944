// Package main implements the fieldmem CLI for exploring a pattern set
// with the in-process engine: load a YAML pattern file, run queries and
// discovery strategies against it, and inspect store statistics.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/fieldmem/internal/config"
	"github.com/fyrsmithlabs/fieldmem/internal/engine"
	"github.com/fyrsmithlabs/fieldmem/internal/logging"
)

var (
	configPath   string
	patternsPath string
	logLevel     string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fieldmem",
	Short: "Explore a pattern set with the fieldmem engine",
	Long: `fieldmem runs the semantic pattern memory engine against a YAML
pattern file: typed queries, emergent discovery strategies and store
statistics. The store is in-memory; every invocation loads the pattern
file fresh.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&patternsPath, "patterns", "p", "", "YAML pattern file to load")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the logging level (trace, debug, info, warn, error)")
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(statsCmd)
}

// newService loads configuration, builds the logger and the engine, and
// loads the pattern file when one was given.
func newService(cmd *cobra.Command) (*engine.Service, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, err
	}

	levelName := logLevel
	if levelName == "" {
		levelName = cfg.Logging.Level
	}
	level, err := logging.LevelFromString(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	logCfg := logging.NewDefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format
	logger, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	svc, err := engine.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	if patternsPath != "" {
		mems, err := readPatterns(patternsPath)
		if err != nil {
			return nil, err
		}
		if _, err := svc.BulkStore(cmd.Context(), mems); err != nil {
			return nil, fmt.Errorf("loading patterns: %w", err)
		}
	}
	return svc, nil
}

// emit writes a result to stdout as YAML.
func emit(v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = os.Stdout.Write(out)
	return err
}
