package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"cardprice/models"
)

func TestReportGenerate(t *testing.T) {
	p := newTestPipeline(t)
	result, err := p.Run(context.Background(), anomalyBatch())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	svc := NewReportService(newTestLogger())
	r := svc.Generate(result)

	if r.BucketCounts[models.BucketRaw] != 2 {
		t.Errorf("raw bucket: got %d, want 2", r.BucketCounts[models.BucketRaw])
	}
	if r.BucketCounts[models.BucketGrade10] != 1 {
		t.Errorf("grade10 bucket: got %d, want 1", r.BucketCounts[models.BucketGrade10])
	}
	if r.BucketCounts[models.BucketExcluded] != 1 {
		t.Errorf("excluded bucket: got %d, want 1", r.BucketCounts[models.BucketExcluded])
	}
	if r.ListingsBySet["Topps Chrome"] != 3 {
		t.Errorf("Topps Chrome listings: got %d, want 3", r.ListingsBySet["Topps Chrome"])
	}
	if r.OverrideMatches != 3 {
		t.Errorf("override matches: got %d, want 3", r.OverrideMatches)
	}
	if len(r.Anomalies) != 1 {
		t.Errorf("anomalies: got %d, want 1", len(r.Anomalies))
	}
	if len(r.TopMultipliers) != 1 {
		t.Errorf("top multipliers: got %d, want 1", len(r.TopMultipliers))
	}
}

func TestReportGenerateNil(t *testing.T) {
	r := NewReportService(newTestLogger()).Generate(nil)
	if r == nil || len(r.BucketCounts) != 0 || len(r.Records) != 0 {
		t.Errorf("Generate(nil) = %+v; want an empty report", r)
	}
}

func TestReportPrint(t *testing.T) {
	p := newTestPipeline(t)
	result, err := p.Run(context.Background(), anomalyBatch())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	svc := NewReportService(newTestLogger())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(result))
	out := buf.String()

	for _, want := range []string{
		"CARD PRICE BATCH REPORT",
		result.Summary.RunID,
		models.ReasonBulkListing.Description(),
		models.ReasonUnresolvedSubject.Description(),
		"2024 Topps Chrome JR Smith #15",
		"YES",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q", want)
		}
	}
}
