package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cardprice/scraper"
	"cardprice/storage"
)

var (
	pageBrowser bool
	pageFile    bool
	pageReport  bool
)

func init() {
	pageCmd.Flags().BoolVar(&pageBrowser, "browser", false, "Render pages in headless Chrome instead of plain HTTP.")
	pageCmd.Flags().BoolVar(&pageFile, "file", false, "Treat arguments as saved HTML files.")
	pageCmd.Flags().BoolVar(&pageReport, "report", true, "Print a report per page.")
	rootCmd.AddCommand(pageCmd)
}

var pageCmd = &cobra.Command{
	Use:   "page [--browser | --file] <url>...",
	Short: "Scrapes unstructured result pages and correlates titles with prices.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if pageBrowser && pageFile {
			return errors.New("--browser and --file are mutually exclusive")
		}

		pipeline, err := newPipeline()
		if err != nil {
			return err
		}

		var source scraper.PageSource
		switch {
		case pageFile:
			source = scraper.FileSource{}
		case pageBrowser:
			source = scraper.NewBrowserSource(cfg.ChromeBin, cfg.MaxRetries, logger)
		default:
			source = scraper.NewHTTPSource(cfg.MaxRetries, logger)
		}
		defer source.Close()

		rate := cfg.RateLimitMs
		if pageFile {
			rate = 0
		}
		s := scraper.New(source, pipeline.Extractor().LooksLikeTitle, cfg.Workers, rate, logger)
		pages, scrapeErr := s.Scrape(ctx, args)
		if len(pages) == 0 {
			return fmt.Errorf("no page could be scraped: %w", scrapeErr)
		}
		if scrapeErr != nil {
			logger.Warn("[page] Some pages failed: %v", scrapeErr)
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

		var archive *storage.CSVWriter
		if cfg.CSVOutputPath != "" {
			archive, err = storage.NewCSVWriter(cfg.CSVOutputPath)
			if err != nil {
				return err
			}
			defer archive.Close()
		}

		for _, page := range pages {
			result, err := pipeline.RunPage(ctx, page)
			if err != nil {
				return err
			}
			if archive != nil {
				if err := archive.WriteRaw(result.Input); err != nil {
					logger.Error("[page] CSV archive failed: %v", err)
				}
			}
			if err := finish(ctx, store, result, pageReport); err != nil {
				return err
			}
		}
		return nil
	},
}
