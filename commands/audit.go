package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"cardprice/models"
	"cardprice/services"
	"cardprice/storage"
)

var (
	auditInput string
	auditStore bool
)

func init() {
	auditCmd.Flags().StringVar(&auditInput, "input", "", "CSV file of raw listings to recompute exactly.")
	auditCmd.Flags().BoolVar(&auditStore, "store", false, "Audit stored records against their stored samples.")
	rootCmd.AddCommand(auditCmd)
}

// sampleReader is implemented by the SQL record stores.
type sampleReader interface {
	Samples(ctx context.Context, key string, bucket models.GradeBucket) ([]decimal.Decimal, error)
}

type drift struct {
	key, field     string
	running, exact string
}

var auditCmd = &cobra.Command{
	Use:   "audit (--input <listings.csv> | --store)",
	Short: "Compares running averages with an exact recomputation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var (
			drifts  []drift
			checked int
			err     error
		)
		switch {
		case auditInput != "":
			drifts, checked, err = auditBatch(ctx)
		case auditStore:
			drifts, checked, err = auditStored(ctx)
		default:
			return fmt.Errorf("one of --input or --store is required")
		}
		if err != nil {
			return err
		}

		logger.Info("[audit] Checked %d records, %d drifted", checked, len(drifts))
		if len(drifts) == 0 {
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Card", "Field", "Running", "Exact"})
		for _, d := range drifts {
			t.AppendRow(table.Row{d.key, d.field, d.running, d.exact})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return fmt.Errorf("%d records drifted", len(drifts))
	},
}

func auditBatch(ctx context.Context) ([]drift, int, error) {
	raw, err := storage.ReadRawCSVFile(auditInput)
	if err != nil {
		return nil, 0, err
	}
	pipeline, err := newPipeline()
	if err != nil {
		return nil, 0, err
	}
	result, err := pipeline.Run(ctx, raw)
	if err != nil {
		return nil, 0, err
	}

	exact := make(map[string]*models.CardPriceRecord)
	for _, r := range services.Recompute(result.Classified, time.Now()) {
		exact[r.Key] = r
	}

	var drifts []drift
	for _, r := range result.Records {
		e, ok := exact[r.Key]
		if !ok {
			drifts = append(drifts, drift{key: r.Key, field: "record", running: "present", exact: "missing"})
			continue
		}
		drifts = append(drifts, compareRecords(r, e)...)
	}
	return drifts, len(result.Records), nil
}

func compareRecords(running, exact *models.CardPriceRecord) []drift {
	var out []drift
	check := func(field string, a, b decimal.Decimal) {
		if !a.Round(2).Equal(b.Round(2)) {
			out = append(out, drift{running.Key, field, a.StringFixed(2), b.StringFixed(2)})
		}
	}
	check("raw_average_price", running.RawAveragePrice, exact.RawAveragePrice)
	check("grade9_average_price", running.Grade9AveragePrice, exact.Grade9AveragePrice)
	if running.RawSampleCount != exact.RawSampleCount {
		out = append(out, drift{running.Key, "raw_sample_count", fmt.Sprint(running.RawSampleCount), fmt.Sprint(exact.RawSampleCount)})
	}
	if running.Grade9SampleCount != exact.Grade9SampleCount {
		out = append(out, drift{running.Key, "grade9_sample_count", fmt.Sprint(running.Grade9SampleCount), fmt.Sprint(exact.Grade9SampleCount)})
	}
	if running.Grade10Price.Valid != exact.Grade10Price.Valid ||
		(running.Grade10Price.Valid && !running.Grade10Price.Decimal.Equal(exact.Grade10Price.Decimal)) {
		out = append(out, drift{running.Key, "grade10_price", nullString(running.Grade10Price), nullString(exact.Grade10Price)})
	}
	if running.AnomalyFlag != exact.AnomalyFlag {
		out = append(out, drift{running.Key, "anomaly_flag", fmt.Sprint(running.AnomalyFlag), fmt.Sprint(exact.AnomalyFlag)})
	}
	return out
}

func auditStored(ctx context.Context) ([]drift, int, error) {
	store, err := openStore(ctx)
	if err != nil {
		return nil, 0, err
	}
	if store == nil {
		return nil, 0, fmt.Errorf("--store needs STORE_DRIVER set to postgres or sqlite")
	}
	defer store.Close()

	samples, ok := store.(sampleReader)
	if !ok {
		return nil, 0, fmt.Errorf("store %q keeps no samples", cfg.StoreDriver)
	}
	records, err := store.Load(ctx, nil)
	if err != nil {
		return nil, 0, err
	}

	var drifts []drift
	for _, r := range records {
		for _, b := range []struct {
			bucket models.GradeBucket
			avg    decimal.Decimal
			count  int
		}{
			{models.BucketRaw, r.RawAveragePrice, r.RawSampleCount},
			{models.BucketGrade9, r.Grade9AveragePrice, r.Grade9SampleCount},
		} {
			prices, err := samples.Samples(ctx, r.Key, b.bucket)
			if err != nil {
				return nil, 0, err
			}
			if len(prices) != b.count {
				drifts = append(drifts, drift{r.Key, string(b.bucket) + " count", fmt.Sprint(b.count), fmt.Sprint(len(prices))})
				continue
			}
			if len(prices) == 0 {
				continue
			}
			mean := decimal.Sum(prices[0], prices[1:]...).Div(decimal.NewFromInt(int64(len(prices))))
			if !mean.Round(2).Equal(b.avg.Round(2)) {
				drifts = append(drifts, drift{r.Key, string(b.bucket) + " average", b.avg.StringFixed(2), mean.StringFixed(2)})
			}
		}
	}
	return drifts, len(records), nil
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}
