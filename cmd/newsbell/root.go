package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/newsbell/internal/config"
	"github.com/abelbrown/newsbell/internal/model"
	"github.com/abelbrown/newsbell/internal/store"
	"github.com/abelbrown/newsbell/internal/store/redisstore"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "newsbell",
	Short:         "Anime and manga news notifier",
	Long:          `newsbell polls news sites on a timer and notifies about articles published since the previous cycle.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadEnvFiles()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $NEWSBELL_CONFIG or ~/.newsbell/config.yaml)")

	rootCmd.AddCommand(
		runCommand(),
		onceCommand(),
		serveCommand(),
		tuiCommand(),
		ackCommand(),
		statusCommand(),
		eventsCommand(),
		sourcesCommand(),
	)
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.ConfigPath()
}

// loadConfig reads the config file. A malformed file is reported and the
// defaults are used.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (using defaults)\n", err)
	}
	return cfg
}

// backend is what every command needs from a store. Both store.Store and
// redisstore.Store satisfy it.
type backend interface {
	Checkpoints(ctx context.Context) (model.Checkpoints, error)
	Commit(ctx context.Context, cps model.Checkpoints, articles []model.Article) error
	Articles(ctx context.Context, limit int) ([]model.Article, error)
	Article(ctx context.Context, id string) (model.Article, error)
	Count(ctx context.Context) (int, error)
	Prune(ctx context.Context, cutoff time.Time) (int, error)
	AddUnread(ctx context.Context, n int) (int, error)
	ResetUnread(ctx context.Context) error
	Unread(ctx context.Context) (int, error)
	Close() error
}

var (
	_ backend = (*store.Store)(nil)
	_ backend = (*redisstore.Store)(nil)
)

func openStore(ctx context.Context, cfg *config.Config) (backend, error) {
	switch cfg.Store.Driver {
	case "redis":
		return redisstore.Open(ctx, cfg.Store.RedisAddr)
	case "", "sqlite":
		path := cfg.StorePath()
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		return store.Open(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func eventLogPath() string {
	return filepath.Join(config.Dir(), "events.jsonl")
}

func logDir() string {
	return filepath.Join(config.Dir(), "logs")
}
