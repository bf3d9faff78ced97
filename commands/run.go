package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cardprice/models"
	"cardprice/services"
	"cardprice/storage"
)

var (
	runInput  string
	runReport bool
)

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "CSV file of raw listings (title, price, condition, source_url, item_id, sold_date).")
	runCmd.Flags().BoolVar(&runReport, "report", true, "Print the batch report.")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run --input <listings.csv>",
	Short: "Processes a batch of structured raw listings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw, err := storage.ReadRawCSVFile(runInput)
		if err != nil {
			return err
		}
		logger.Info("[run] Read %d raw listings from %s", len(raw), runInput)

		pipeline, err := newPipeline()
		if err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}
		if err := seed(ctx, store, pipeline); err != nil {
			return err
		}

		result, err := pipeline.Run(ctx, raw)
		if err != nil {
			return err
		}
		return finish(ctx, store, result, runReport)
	},
}

// finish persists a batch and prints its report.
func finish(ctx context.Context, store storage.RecordStore, result *models.BatchResult, report bool) error {
	if store != nil {
		if err := store.Apply(ctx, result); err != nil {
			return fmt.Errorf("persist batch %s: %w", result.Summary.RunID, err)
		}
		logger.Info("[store] Stored %d records and %d samples for batch %s",
			len(result.Records), len(result.Upserts), result.Summary.RunID)
	}
	if report {
		svc := services.NewReportService(logger)
		svc.Print(os.Stdout, svc.Generate(result))
	}
	return nil
}
