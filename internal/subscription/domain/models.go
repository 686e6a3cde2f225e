// Package domain contains the subscription fact model and the transition
// rules that decide when a fact row is appended.
package domain

import "github.com/bwmarrin/snowflake"

// Subscription statuses observed in source snapshots.
const (
	StatusActive    = "active"
	StatusTrialing  = "trialing"
	StatusPastDue   = "past_due"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// IsTerminal reports whether a status represents subscription termination.
func IsTerminal(status string) bool {
	return status == StatusCancelled || status == StatusExpired
}

// Fact is one observed subscription state transition. The unique
// (subscription_id, status, mrr_amount) constraint is the idempotency
// guard: re-observing a recorded state cannot append a second row.
type Fact struct {
	EventSK        snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	DateKey        int          `gorm:"not null"`
	CustomerID     string       `gorm:"type:text;not null"`
	PlanKey        snowflake.ID `gorm:"not null"`
	SubscriptionID string       `gorm:"type:text;not null;uniqueIndex:subscription_facts_state_key"`
	// stored as text so the canonical "50.00" form survives sqlite's
	// numeric affinity; state comparison is exact string equality
	MRRAmount      string       `gorm:"type:text;not null;uniqueIndex:subscription_facts_state_key"`
	ChurnFlag      bool         `gorm:"not null"`
	IsNewMRRFlag   bool         `gorm:"not null"`
	Status         string       `gorm:"type:text;not null;uniqueIndex:subscription_facts_state_key"`
}

func (Fact) TableName() string { return "subscription_facts" }
