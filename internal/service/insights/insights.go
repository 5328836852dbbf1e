// Package insights shapes subscription lists into the numbers shown on the
// dashboard, insights and calendar pages. Everything here is pure.
package insights

import (
	"math"
	"time"

	"github.com/smallbiznis/subtrack/internal/domain"
)

// UpcomingWindowDays is how far ahead a billing date counts as upcoming.
const UpcomingWindowDays = 7

// Summary backs the dashboard stat cards.
type Summary struct {
	MonthlyTotal  float64               `json:"monthlyTotal"`
	TrackedCount  int                   `json:"trackedCount"`
	Upcoming      []domain.Subscription `json:"upcoming"`
	UpcomingCount int                   `json:"upcomingCount"`
}

// CategorySpend is one slice of the category chart.
type CategorySpend struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Date          string                `json:"date"`
	Day           int                   `json:"day"`
	Subscriptions []domain.Subscription `json:"subscriptions"`
}

// CalendarMonth is the month view. LeadingBlanks is the weekday of the 1st, Sunday = 0.
type CalendarMonth struct {
	Year          int           `json:"year"`
	Month         int           `json:"month"`
	LeadingBlanks int           `json:"leadingBlanks"`
	Days          []CalendarDay `json:"days"`
	MonthTotal    float64       `json:"monthTotal"`
}

// Summarize computes the dashboard totals as of now. Yearly plans count a
// twelfth of their price. A subscription is upcoming when its billing date is
// between 0 and 7 days away, rounding partial days up.
func Summarize(subs []domain.Subscription, now time.Time) Summary {
	summary := Summary{TrackedCount: len(subs), Upcoming: []domain.Subscription{}}
	for _, sub := range subs {
		summary.MonthlyTotal += sub.MonthlyPrice()

		next, ok := sub.NextBilling(now.Location())
		if !ok {
			continue
		}
		days := int(math.Ceil(next.Sub(now).Hours() / 24))
		if days >= 0 && days <= UpcomingWindowDays {
			summary.Upcoming = append(summary.Upcoming, sub)
		}
	}
	summary.UpcomingCount = len(summary.Upcoming)
	return summary
}

// ByCategory groups spend per category in first-seen order. The first
// subscription of a category decides its color.
func ByCategory(subs []domain.Subscription) []CategorySpend {
	out := []CategorySpend{}
	index := make(map[string]int)
	for _, sub := range subs {
		if i, ok := index[sub.Category]; ok {
			out[i].Value += sub.Price
			continue
		}
		index[sub.Category] = len(out)
		out = append(out, CategorySpend{Name: sub.Category, Value: sub.Price, Color: sub.Color})
	}
	return out
}

// AnnualTotal projects the normalized monthly total over a year.
func AnnualTotal(subs []domain.Subscription) float64 {
	var monthly float64
	for _, sub := range subs {
		monthly += sub.MonthlyPrice()
	}
	return monthly * 12
}

// Calendar lays out the given month in loc, the same location Summarize reads
// billing dates in. Subscriptions without a parseable billing date never appear.
func Calendar(subs []domain.Subscription, year int, month time.Month, loc *time.Location) CalendarMonth {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	cal := CalendarMonth{
		Year:          first.Year(),
		Month:         int(first.Month()),
		LeadingBlanks: int(first.Weekday()),
		Days:          make([]CalendarDay, daysInMonth),
	}
	for i := range cal.Days {
		date := first.AddDate(0, 0, i)
		cal.Days[i] = CalendarDay{
			Date:          date.Format(domain.DateLayout),
			Day:           i + 1,
			Subscriptions: []domain.Subscription{},
		}
	}

	for _, sub := range subs {
		next, ok := sub.NextBilling(loc)
		if !ok || next.Year() != cal.Year || next.Month() != first.Month() {
			continue
		}
		day := &cal.Days[next.Day()-1]
		day.Subscriptions = append(day.Subscriptions, sub)
		cal.MonthTotal += sub.Price
	}
	return cal
}

// ParseMonth reads a YYYY-MM value. An empty value yields the month of now.
func ParseMonth(value string, now time.Time) (int, time.Month, error) {
	if value == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}
