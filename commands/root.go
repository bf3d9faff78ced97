package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cardprice/config"
	"cardprice/services"
	"cardprice/storage"
	"cardprice/utils"
)

var (
	cfg    *config.Config
	logger *utils.Logger

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "cardprice",
	Short:         "cardprice turns scraped card auction listings into per-card price records.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger = utils.NewLoggerWithOptions(os.Stderr, cfg.LogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Overrides LOG_LEVEL (debug, info, warn, error).")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadVocabulary() (*config.Vocabulary, error) {
	vocab, err := config.LoadVocabulary(cfg.VocabularyPath, cfg.VocabularyOverlayPath)
	if err != nil {
		logger.Error("[config] Vocabulary rejected, aborting batch: %v", err)
		return nil, err
	}
	return vocab, nil
}

func newPipeline() (*services.Pipeline, error) {
	vocab, err := loadVocabulary()
	if err != nil {
		return nil, err
	}
	return services.NewPipeline(services.PipelineConfig{
		CorrelationWindow: cfg.CorrelationWindow,
		MinYear:           cfg.MinCardYear,
		MaxYear:           cfg.MaxCardYear,
		Workers:           cfg.Workers,
		Partitions:        cfg.Partitions,
		AllowMissingYear:  cfg.AllowMissingYear,
	}, vocab, logger)
}

// openStore returns nil when STORE_DRIVER is "none".
func openStore(ctx context.Context) (storage.RecordStore, error) {
	switch cfg.StoreDriver {
	case "", "none":
		return nil, nil
	case "postgres":
		pw, err := storage.NewPostgresWriter(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		return pw, nil
	case "sqlite":
		sw, err := storage.NewSQLiteWriter(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sw, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want none, postgres or sqlite)", cfg.StoreDriver)
	}
}

// seed continues running statistics from whatever the store already holds.
func seed(ctx context.Context, store storage.RecordStore, p *services.Pipeline) error {
	if store == nil {
		return nil
	}
	records, err := store.Load(ctx, nil)
	if err != nil {
		return err
	}
	logger.Info("[store] Loaded %d existing card records", len(records))
	p.Seed(records)
	return nil
}
