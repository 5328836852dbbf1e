package domain

import "time"

// BillingCycle is how often a subscription charges.
type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingYearly  BillingCycle = "yearly"
)

// DateLayout is the calendar date format the backend uses for billing dates.
const DateLayout = "2006-01-02"

// Subscription is a recurring charge detected from the user's mailbox.
type Subscription struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Price           float64      `json:"price"`
	BillingCycle    BillingCycle `json:"billingCycle"`
	NextBillingDate string       `json:"nextBillingDate"`
	Category        string       `json:"category"`
	Color           string       `json:"color"`
	IsAutoDetected  bool         `json:"isAutoDetected,omitempty"`
}

// MonthlyPrice normalizes the price to a per-month amount.
func (s Subscription) MonthlyPrice() float64 {
	if s.BillingCycle == BillingYearly {
		return s.Price / 12
	}
	return s.Price
}

// NextBilling parses NextBillingDate in loc. ok is false when the backend sent
// no date or a placeholder such as "-".
func (s Subscription) NextBilling(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, s.NextBillingDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ReminderSettings are the notification preferences shown on the settings page.
type ReminderSettings struct {
	SevenDay bool `json:"sevenDay"`
	ThreeDay bool `json:"threeDay"`
	OneDay   bool `json:"oneDay"`
	Email    bool `json:"email"`
	Push     bool `json:"push"`
}

// DefaultReminderSettings returns the preferences a new session starts with.
func DefaultReminderSettings() ReminderSettings {
	return ReminderSettings{SevenDay: true, ThreeDay: true, OneDay: true, Email: false, Push: true}
}
