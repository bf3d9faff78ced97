package commands

import (
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cardprice/services"
)

func init() {
	vocabCmd.AddCommand(vocabCheckCmd)
	vocabCmd.AddCommand(vocabExtractCmd)
	rootCmd.AddCommand(vocabCmd)
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Inspects the extraction vocabulary.",
}

var vocabCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validates the vocabulary (and overlay) and prints table sizes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadVocabulary()
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Table", "Entries"})
		t.AppendRows([]table.Row{
			{"brands", len(v.Brands)},
			{"sets", len(v.Sets)},
			{"subjects", len(v.Subjects)},
			{"parallels", len(v.Parallels)},
			{"stopwords", len(v.Stopwords)},
			{"teams", len(v.Teams)},
			{"bulk_markers", len(v.BulkMarkers)},
			{"authorities", len(v.Grading.Authorities)},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()

		logger.Info("[vocab] Vocabulary OK (tracked authority %q, proximity %d)", v.Grading.Tracked, v.Grading.Proximity)
		return nil
	},
}

var vocabExtractCmd = &cobra.Command{
	Use:   "extract <title>...",
	Short: "Shows what the extractor and classifier make of listing titles.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadVocabulary()
		if err != nil {
			return err
		}
		extractor := services.NewExtractor(v, cfg.MinCardYear, cfg.MaxCardYear)
		resolver := services.NewResolver(v, logger)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Normalized", "Subject", "Year", "Brand", "Set", "#", "Run", "RC", "Auto", "Grade"})
		for _, title := range args {
			normalized := services.NormalizeTitle(title)
			f := extractor.Extract(normalized)
			res := resolver.Resolve(f.SubjectNameCandidate, normalized)
			year := ""
			if f.HasYear() {
				year = strconv.Itoa(f.Year)
			}
			t.AppendRow(table.Row{
				normalized, res.Name, year, f.Brand, f.SetName,
				f.CardNumber, f.PrintRun, f.IsRookie, f.IsAutograph, f.GradeToken,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
