package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"

	"cardprice/models"
	"cardprice/utils"
)

type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

func (s *ReportService) Generate(result *models.BatchResult) *models.InsightReport {
	report := &models.InsightReport{
		BucketCounts:  make(map[models.GradeBucket]int),
		ListingsBySet: make(map[string]int),
		Suggestions:   make(map[string]string),
	}
	if result == nil {
		return report
	}
	report.Summary = result.Summary
	report.Records = result.Records

	for _, l := range result.Classified {
		report.BucketCounts[l.Bucket]++
		if l.Excluded() {
			continue
		}
		set := strings.TrimSpace(l.Brand + " " + l.SetName)
		if set == "" {
			set = "(unknown set)"
		}
		report.ListingsBySet[set]++
		if l.SubjectFromOverride {
			report.OverrideMatches++
		}
		if l.SubjectSuggestion != "" {
			report.Suggestions[l.CanonicalSubjectName] = l.SubjectSuggestion
		}
	}

	var priced []*models.CardPriceRecord
	for _, r := range result.Records {
		if r.Multiplier.Valid {
			priced = append(priced, r)
		}
		if r.AnomalyFlag {
			report.Anomalies = append(report.Anomalies, r)
		}
	}

	// Top 5 by multiplier
	sort.SliceStable(priced, func(i, j int) bool {
		return priced[i].Multiplier.Decimal.GreaterThan(priced[j].Multiplier.Decimal)
	})
	if len(priced) > 5 {
		report.TopMultipliers = priced[:5]
	} else {
		report.TopMultipliers = priced
	}

	return report
}

func (s *ReportService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  CARD PRICE BATCH REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	sum := r.Summary
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Run                : %s\n", sum.RunID)
	fmt.Fprintf(w, "  Listings in        : \033[1m%d\033[0m\n", sum.ListingsIn)
	fmt.Fprintf(w, "  Listings excluded  : \033[1m%d\033[0m\n", sum.ListingsExcluded)
	fmt.Fprintf(w, "  Duplicates removed : \033[1m%d\033[0m\n", sum.DuplicatesRemoved)
	fmt.Fprintf(w, "  Anomalies          : \033[1;31m%d\033[0m\n", sum.AnomaliesDetected)
	fmt.Fprintf(w, "  Override matches   : %d\n", r.OverrideMatches)
	fmt.Fprintln(w)

	// Exclusions
	fmt.Fprintf(w, "\033[1;33m  Exclusions by Reason\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(sum.ExclusionReasons) == 0 {
		fmt.Fprintf(w, "  Nothing excluded\n")
	} else {
		reasons := make([]models.Reason, 0, len(sum.ExclusionReasons))
		for reason := range sum.ExclusionReasons {
			reasons = append(reasons, reason)
		}
		sort.Slice(reasons, func(i, j int) bool {
			ci, cj := sum.ExclusionReasons[reasons[i]], sum.ExclusionReasons[reasons[j]]
			if ci != cj {
				return ci > cj
			}
			return reasons[i] < reasons[j]
		})
		for _, reason := range reasons {
			fmt.Fprintf(w, "  %-48s %d\n", truncate(reason.Description(), 46), sum.ExclusionReasons[reason])
		}
	}
	fmt.Fprintln(w)

	// Buckets
	fmt.Fprintf(w, "\033[1;33m  Grade Buckets\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, b := range []models.GradeBucket{models.BucketRaw, models.BucketGrade9, models.BucketGrade10, models.BucketExcluded} {
		bar := strings.Repeat("█", min(r.BucketCounts[b], 40))
		fmt.Fprintf(w, "  %-10s %s (%d)\n", b, bar, r.BucketCounts[b])
	}
	fmt.Fprintln(w)

	if len(r.Records) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"Card", "Raw avg", "n", "PSA 9 avg", "n", "PSA 10", "Mult", "Anomaly"})
		for _, rec := range r.Records {
			t.AppendRow(table.Row{
				truncate(describeCard(rec.Identity), 44),
				priceCell(rec.RawAveragePrice, rec.RawSampleCount),
				rec.RawSampleCount,
				priceCell(rec.Grade9AveragePrice, rec.Grade9SampleCount),
				rec.Grade9SampleCount,
				nullCell(rec.Grade10Price, 2),
				nullCell(rec.Multiplier, 2),
				anomalyCell(rec.AnomalyFlag),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		fmt.Fprintln(w)
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Possible Override Misses\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		names := make([]string, 0, len(r.Suggestions))
		for name := range r.Suggestions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-24s → %s\n", truncate(name, 24), r.Suggestions[name])
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func describeCard(id models.CardIdentity) string {
	parts := make([]string, 0, 6)
	if id.Year != 0 {
		parts = append(parts, fmt.Sprint(id.Year))
	}
	for _, p := range []string{id.Brand, id.SetName, id.Subject, id.CardNumber, id.PrintRun} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func priceCell(d decimal.Decimal, n int) string {
	if n == 0 {
		return "-"
	}
	return "$" + d.StringFixed(2)
}

func nullCell(d decimal.NullDecimal, places int32) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(places)
}

func anomalyCell(flag bool) string {
	if flag {
		return "YES"
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
