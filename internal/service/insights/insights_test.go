package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/subtrack/internal/domain"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	subs := []domain.Subscription{
		{Name: "Netflix", Price: 15.49, BillingCycle: domain.BillingMonthly, NextBillingDate: "2026-02-12"},
		{Name: "Spotify", Price: 9.99, BillingCycle: domain.BillingMonthly, NextBillingDate: "2026-02-25"},
		{Name: "Adobe", Price: 120, BillingCycle: domain.BillingYearly, NextBillingDate: "2026-02-17"},
		{Name: "Past", Price: 1, BillingCycle: domain.BillingMonthly, NextBillingDate: "2026-02-01"},
		{Name: "Unknown", Price: 2, BillingCycle: domain.BillingMonthly, NextBillingDate: "-"},
	}

	summary := Summarize(subs, now)
	require.Equal(t, 5, summary.TrackedCount)
	require.InDelta(t, 15.49+9.99+10+1+2, summary.MonthlyTotal, 1e-9)
	require.Equal(t, 2, summary.UpcomingCount)
	require.Equal(t, "Netflix", summary.Upcoming[0].Name)
	// 6 days 15 hours rounds up to 7 and still counts
	require.Equal(t, "Adobe", summary.Upcoming[1].Name)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil, time.Now())
	require.Zero(t, summary.MonthlyTotal)
	require.Zero(t, summary.TrackedCount)
	require.NotNil(t, summary.Upcoming)
}

func TestByCategoryKeepsFirstSeenOrder(t *testing.T) {
	subs := []domain.Subscription{
		{Name: "Netflix", Price: 15.49, Category: "streaming", Color: "#E50914"},
		{Name: "ChatGPT", Price: 20, Category: "productivity", Color: "#10A37F"},
		{Name: "Spotify", Price: 9.99, Category: "streaming", Color: "#1DB954"},
	}

	got := ByCategory(subs)
	require.Len(t, got, 2)
	require.Equal(t, "streaming", got[0].Name)
	require.InDelta(t, 25.48, got[0].Value, 1e-9)
	require.Equal(t, "#E50914", got[0].Color)
	require.Equal(t, "productivity", got[1].Name)
}

func TestAnnualTotalNormalizesYearlyPlans(t *testing.T) {
	subs := []domain.Subscription{
		{Price: 10, BillingCycle: domain.BillingMonthly},
		{Price: 120, BillingCycle: domain.BillingYearly},
	}
	require.InDelta(t, 240, AnnualTotal(subs), 1e-9)
}

func TestCalendar(t *testing.T) {
	subs := []domain.Subscription{
		{Name: "Netflix", Price: 15.49, NextBillingDate: "2026-02-12"},
		{Name: "Spotify", Price: 9.99, NextBillingDate: "2026-02-12"},
		{Name: "iCloud", Price: 2.99, NextBillingDate: "2026-03-01"},
		{Name: "Broken", Price: 5, NextBillingDate: ""},
	}

	cal := Calendar(subs, 2026, time.February, time.UTC)
	require.Equal(t, 2026, cal.Year)
	require.Equal(t, 2, cal.Month)
	// 1 February 2026 is a Sunday
	require.Equal(t, 0, cal.LeadingBlanks)
	require.Len(t, cal.Days, 28)
	require.Equal(t, "2026-02-12", cal.Days[11].Date)
	require.Len(t, cal.Days[11].Subscriptions, 2)
	require.Empty(t, cal.Days[0].Subscriptions)
	require.InDelta(t, 25.48, cal.MonthTotal, 1e-9)

	march := Calendar(subs, 2026, time.March, time.UTC)
	require.Equal(t, 0, march.LeadingBlanks)
	require.Len(t, march.Days, 31)
	require.InDelta(t, 2.99, march.MonthTotal, 1e-9)

	april := Calendar(nil, 2026, time.April, nil)
	require.Equal(t, 3, april.LeadingBlanks)
	require.Len(t, april.Days, 30)
}

func TestCalendarAgreesWithSummarizeAcrossZones(t *testing.T) {
	honolulu := time.FixedZone("HST", -10*60*60)
	// Already 1 March in UTC, still 28 February locally.
	now := time.Date(2026, 2, 28, 20, 0, 0, 0, honolulu)
	subs := []domain.Subscription{
		{Name: "Netflix", Price: 15.49, BillingCycle: domain.BillingMonthly, NextBillingDate: "2026-02-28"},
	}

	summary := Summarize(subs, now)
	require.Equal(t, 1, summary.UpcomingCount)

	year, month, err := ParseMonth("", now)
	require.NoError(t, err)
	cal := Calendar(subs, year, month, now.Location())
	require.Equal(t, 2, cal.Month)
	require.Len(t, cal.Days, 28)
	require.Equal(t, "2026-02-28", cal.Days[27].Date)
	require.Len(t, cal.Days[27].Subscriptions, 1)
	require.InDelta(t, 15.49, cal.MonthTotal, 1e-9)
}

func TestParseMonth(t *testing.T) {
	now := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)

	year, month, err := ParseMonth("", now)
	require.NoError(t, err)
	require.Equal(t, 2026, year)
	require.Equal(t, time.July, month)

	year, month, err = ParseMonth("2025-12", now)
	require.NoError(t, err)
	require.Equal(t, 2025, year)
	require.Equal(t, time.December, month)

	_, _, err = ParseMonth("12/2025", now)
	require.Error(t, err)
}
