package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/smallbiznis/subtrack/internal/adapter/backend"
	"github.com/smallbiznis/subtrack/internal/domain"
	"github.com/smallbiznis/subtrack/internal/service/insights"
)

const (
	// LastSyncNever is reported while the dashboard shows sample data.
	LastSyncNever = "Never"
	// LastSyncNow is reported right after a successful backend fetch.
	LastSyncNow = "Just now"

	defaultServiceColor = "#6366F1"
	defaultCategory     = "other"
	unknownBillingDate  = "-"
)

var serviceColors = map[string]string{
	"netflix":              "#E50914",
	"spotify":              "#1DB954",
	"adobe":                "#FF0000",
	"adobe creative cloud": "#FF0000",
	"icloud":               "#007AFF",
	"chatgpt":              "#10A37F",
}

// SampleSubscriptions is shown until the backend returns real data.
func SampleSubscriptions() []domain.Subscription {
	return []domain.Subscription{
		{ID: "1", Name: "Netflix", Price: 15.49, BillingCycle: domain.BillingMonthly, NextBillingDate: "2026-02-12", Category: "streaming", Color: "#E50914", IsAutoDetected: true},
		{ID: "2", Name: "Spotify", Price: 9.99, BillingCycle: domain.BillingMonthly, NextBillingDate: "2026-02-15", Category: "streaming", Color: "#1DB954", IsAutoDetected: true},
	}
}

// ServiceColor returns the brand color for a service name.
func ServiceColor(name string) string {
	if color, ok := serviceColors[strings.ToLower(strings.TrimSpace(name))]; ok {
		return color
	}
	return defaultServiceColor
}

// Dashboard is the payload of the dashboard page.
type Dashboard struct {
	Subscriptions []domain.Subscription `json:"subscriptions"`
	Summary       insights.Summary      `json:"summary"`
	LastSync      string                `json:"lastSync"`
	Sample        bool                  `json:"sample"`
}

// Insights is the payload of the insights page.
type Insights struct {
	Categories  []insights.CategorySpend `json:"categories"`
	AnnualTotal float64                  `json:"annualTotal"`
}

// SubscriptionSource is the part of the backend client the dashboard reads from.
type SubscriptionSource interface {
	ListSubscriptions(ctx context.Context, token string) ([]backend.SubscriptionRecord, error)
}

// DashboardService loads subscriptions and shapes them for each page.
type DashboardService struct {
	source SubscriptionSource
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewDashboardService wires dependencies.
func NewDashboardService(source SubscriptionSource, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		source: source,
		logger: logger,
		tracer: otel.Tracer("github.com/smallbiznis/subtrack/internal/service"),
		now:    time.Now,
	}
}

// Subscriptions fetches the user's subscriptions. An empty list or any
// backend failure yields the sample data with sample=true.
func (s *DashboardService) Subscriptions(ctx context.Context, token string) (subs []domain.Subscription, sample bool) {
	ctx, span := s.tracer.Start(ctx, "dashboard.subscriptions")
	defer func() {
		span.SetAttributes(attribute.Bool("subtrack.sample", sample), attribute.Int("subtrack.count", len(subs)))
		span.End()
	}()

	records, err := s.source.ListSubscriptions(ctx, token)
	if err != nil {
		s.log().Info("backend not available, using sample subscriptions", zap.Error(err))
		return SampleSubscriptions(), true
	}
	if len(records) == 0 {
		return SampleSubscriptions(), true
	}

	subs = make([]domain.Subscription, 0, len(records))
	for i, record := range records {
		subs = append(subs, mapRecord(i, record))
	}
	return subs, false
}

// Load builds the dashboard page.
func (s *DashboardService) Load(ctx context.Context, token string) Dashboard {
	subs, sample := s.Subscriptions(ctx, token)
	lastSync := LastSyncNow
	if sample {
		lastSync = LastSyncNever
	}
	return Dashboard{
		Subscriptions: subs,
		Summary:       insights.Summarize(subs, s.now()),
		LastSync:      lastSync,
		Sample:        sample,
	}
}

// Insights builds the category breakdown.
func (s *DashboardService) Insights(ctx context.Context, token string) Insights {
	subs, _ := s.Subscriptions(ctx, token)
	return Insights{
		Categories:  insights.ByCategory(subs),
		AnnualTotal: insights.AnnualTotal(subs),
	}
}

// Calendar builds the month view. month is YYYY-MM or empty for the current month.
func (s *DashboardService) Calendar(ctx context.Context, token, month string) (insights.CalendarMonth, error) {
	now := s.now()
	year, m, err := insights.ParseMonth(month, now)
	if err != nil {
		return insights.CalendarMonth{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	subs, _ := s.Subscriptions(ctx, token)
	return insights.Calendar(subs, year, m, now.Location()), nil
}

func mapRecord(index int, record backend.SubscriptionRecord) domain.Subscription {
	name := firstNonEmpty(record.ServiceName, record.Name)
	price := 0.0
	switch {
	case record.Amount != nil:
		price = *record.Amount
	case record.Price != nil:
		price = *record.Price
	}
	id := record.ID
	if id == "" {
		id = fmt.Sprintf("%d-%s", index, name)
	}
	color := record.Color
	if color == "" {
		color = ServiceColor(name)
	}
	return domain.Subscription{
		ID:              id,
		Name:            name,
		Price:           price,
		BillingCycle:    billingCycle(firstNonEmpty(record.BillingCycle, record.BillingCycleAlt)),
		NextBillingDate: firstNonEmpty(record.NextBillingDate, record.NextBillingAlt, unknownBillingDate),
		Category:        firstNonEmpty(record.Category, defaultCategory),
		Color:           color,
		IsAutoDetected:  true,
	}
}

func billingCycle(v string) domain.BillingCycle {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yearly", "annual", "annually":
		return domain.BillingYearly
	default:
		return domain.BillingMonthly
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (s *DashboardService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
