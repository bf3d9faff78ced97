package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardprice/models"
)

var (
	fixedNow     = time.Date(2024, 10, 15, 12, 0, 0, 0, time.UTC)
	fixedClock   = func() time.Time { return fixedNow }
	decimalEq    = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
	testIdentity = models.CardIdentity{Subject: "JR Smith", Year: 2024, Brand: "Topps", SetName: "Chrome", CardNumber: "#15"}
)

func sample(seq int, bucket models.GradeBucket, price string, soldAt time.Time) models.ClassifiedListing {
	var l models.ClassifiedListing
	l.Seq = seq
	l.CanonicalSubjectName = testIdentity.Subject
	l.Year = testIdentity.Year
	l.Brand = testIdentity.Brand
	l.SetName = testIdentity.SetName
	l.CardNumber = testIdentity.CardNumber
	l.Price = decimal.RequireFromString(price)
	l.SoldAt = soldAt
	l.Bucket = bucket
	return l
}

func day(d int) time.Time { return time.Date(2024, 10, d, 0, 0, 0, 0, time.UTC) }

func TestAggregatorAnomalyAndMultiplier(t *testing.T) {
	a := NewAggregator(4, newTestLogger(), fixedClock)

	upserts, err := a.Apply(context.Background(), []models.ClassifiedListing{
		sample(0, models.BucketRaw, "40", time.Time{}),
		sample(1, models.BucketRaw, "60", time.Time{}),
		sample(2, models.BucketGrade10, "40", day(5)),
	})
	require.NoError(t, err)
	require.Len(t, upserts, 3)

	records := a.Records()
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, testIdentity.Key(), rec.Key)
	assert.True(t, rec.RawAveragePrice.Equal(decimal.NewFromInt(50)), "raw average %s", rec.RawAveragePrice)
	assert.Equal(t, 2, rec.RawSampleCount)
	require.True(t, rec.Grade10Price.Valid)
	assert.True(t, rec.Grade10Price.Decimal.Equal(decimal.NewFromInt(40)))
	require.True(t, rec.Multiplier.Valid, "multiplier must survive the anomaly flag")
	assert.True(t, rec.Multiplier.Decimal.Equal(decimal.RequireFromString("0.8")), "multiplier %s", rec.Multiplier.Decimal)
	assert.True(t, rec.AnomalyFlag)
	assert.Equal(t, fixedNow, rec.LastUpdated)
}

func TestAggregatorNoMultiplierWithoutBothSides(t *testing.T) {
	a := NewAggregator(1, newTestLogger(), fixedClock)

	_, err := a.Apply(context.Background(), []models.ClassifiedListing{
		sample(0, models.BucketGrade10, "100", day(1)),
	})
	require.NoError(t, err)

	rec := a.Records()[0]
	assert.False(t, rec.Multiplier.Valid)
	assert.False(t, rec.AnomalyFlag)
	assert.Zero(t, rec.RawSampleCount)
}

func TestAggregatorGrade10MostRecentWins(t *testing.T) {
	a := NewAggregator(2, newTestLogger(), fixedClock)

	steps := []struct {
		l    models.ClassifiedListing
		want string
	}{
		{sample(0, models.BucketGrade10, "100", day(5)), "100"},
		{sample(1, models.BucketGrade10, "200", day(1)), "100"},      // older sale
		{sample(2, models.BucketGrade10, "300", time.Time{}), "100"}, // undated
		{sample(3, models.BucketGrade10, "150", day(5)), "150"},      // same day, later listing
		{sample(4, models.BucketGrade10, "120", day(9)), "120"},
	}
	for _, s := range steps {
		_, err := a.Apply(context.Background(), []models.ClassifiedListing{s.l})
		require.NoError(t, err)
		got := a.Records()[0].Grade10Price.Decimal
		assert.True(t, got.Equal(decimal.RequireFromString(s.want)), "after seq %d: grade 10 price %s; want %s", s.l.Seq, got, s.want)
	}
}

func TestAggregatorSkipsExcludedAndUnresolved(t *testing.T) {
	a := NewAggregator(1, newTestLogger(), fixedClock)

	excluded := sample(0, models.BucketExcluded, "10", time.Time{})
	excluded.ExclusionReason = models.ReasonBulkListing
	unresolved := sample(1, models.BucketRaw, "10", time.Time{})
	unresolved.CanonicalSubjectName = models.UnresolvedSubject

	upserts, err := a.Apply(context.Background(), []models.ClassifiedListing{excluded, unresolved})
	require.NoError(t, err)
	assert.Empty(t, upserts)
	assert.Empty(t, a.Records())
}

func TestAggregatorSeedContinuesRunningMean(t *testing.T) {
	a := NewAggregator(3, newTestLogger(), fixedClock)
	a.Seed([]*models.CardPriceRecord{{
		Identity:        testIdentity,
		RawAveragePrice: decimal.NewFromInt(10),
		RawSampleCount:  1,
	}})

	_, err := a.Apply(context.Background(), []models.ClassifiedListing{
		sample(0, models.BucketRaw, "20", time.Time{}),
		sample(1, models.BucketGrade9, "80", time.Time{}),
	})
	require.NoError(t, err)

	rec := a.Records()[0]
	assert.True(t, rec.RawAveragePrice.Equal(decimal.NewFromInt(15)), "raw average %s", rec.RawAveragePrice)
	assert.Equal(t, 2, rec.RawSampleCount)
	assert.True(t, rec.Grade9AveragePrice.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, 1, rec.Grade9SampleCount)
}

func TestAggregatorMatchesRecompute(t *testing.T) {
	listings := []models.ClassifiedListing{
		sample(0, models.BucketRaw, "10.00", time.Time{}),
		sample(1, models.BucketRaw, "20.00", time.Time{}),
		sample(2, models.BucketRaw, "30.01", time.Time{}),
		sample(3, models.BucketGrade9, "45.50", time.Time{}),
		sample(4, models.BucketRaw, "17.27", time.Time{}),
		sample(5, models.BucketGrade10, "99.99", day(3)),
		sample(6, models.BucketGrade9, "51.00", time.Time{}),
	}
	other := sample(7, models.BucketRaw, "3.00", time.Time{})
	other.CanonicalSubjectName = "Mike Trout"
	listings = append(listings, other)

	a := NewAggregator(4, newTestLogger(), fixedClock)
	_, err := a.Apply(context.Background(), listings)
	require.NoError(t, err)

	running := a.Records()
	exact := Recompute(listings, fixedNow)
	require.Len(t, running, len(exact))

	cents := cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Round(2).Equal(y.Round(2)) })
	if diff := cmp.Diff(exact, running, cents); diff != "" {
		t.Errorf("running records differ from recomputation (-exact +running):\n%s", diff)
	}
}

func TestAggregatorPartitionCountDoesNotMatter(t *testing.T) {
	var listings []models.ClassifiedListing
	for i, name := range []string{"A Player", "B Player", "C Player", "D Player", "E Player"} {
		for j, price := range []string{"5", "7", "11"} {
			l := sample(i*3+j, models.BucketRaw, price, time.Time{})
			l.CanonicalSubjectName = name
			listings = append(listings, l)
		}
	}

	one := NewAggregator(1, newTestLogger(), fixedClock)
	many := NewAggregator(8, newTestLogger(), fixedClock)
	u1, err := one.Apply(context.Background(), listings)
	require.NoError(t, err)
	u8, err := many.Apply(context.Background(), listings)
	require.NoError(t, err)

	if diff := cmp.Diff(one.Records(), many.Records(), decimalEq); diff != "" {
		t.Errorf("records depend on partition count (-1 +8):\n%s", diff)
	}
	if diff := cmp.Diff(u1, u8, decimalEq); diff != "" {
		t.Errorf("upserts depend on partition count (-1 +8):\n%s", diff)
	}
}

func TestAggregatorUpsertTimestamp(t *testing.T) {
	a := NewAggregator(1, newTestLogger(), fixedClock)

	scraped := sample(1, models.BucketRaw, "5", time.Time{})
	scraped.ScrapedAt = day(3)
	soldAndScraped := sample(2, models.BucketRaw, "5", day(2))
	soldAndScraped.ScrapedAt = day(3)

	upserts, err := a.Apply(context.Background(), []models.ClassifiedListing{
		sample(0, models.BucketRaw, "5", day(2)),
		scraped,
		soldAndScraped,
		sample(3, models.BucketRaw, "5", time.Time{}),
	})
	require.NoError(t, err)
	require.Len(t, upserts, 4)
	assert.Equal(t, day(2), upserts[0].SampleTimestamp)
	assert.Equal(t, day(3), upserts[1].SampleTimestamp)
	assert.Equal(t, day(2), upserts[2].SampleTimestamp)
	assert.True(t, upserts[3].SampleTimestamp.IsZero(), "undated sample stamped %v", upserts[3].SampleTimestamp)
}

func TestAggregatorCancelled(t *testing.T) {
	a := NewAggregator(2, newTestLogger(), fixedClock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	upserts, err := a.Apply(ctx, []models.ClassifiedListing{
		sample(0, models.BucketRaw, "5", time.Time{}),
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, upserts)
	assert.Empty(t, a.Records())
}
