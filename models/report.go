package models

// InsightReport holds the computed analytics over one batch.
type InsightReport struct {
	Summary         BatchSummary
	BucketCounts    map[GradeBucket]int
	ListingsBySet   map[string]int
	TopMultipliers  []*CardPriceRecord
	Anomalies       []*CardPriceRecord
	Records         []*CardPriceRecord
	OverrideMatches int
	Suggestions     map[string]string
}
