// Package domain contains the plan dimension model and resolution contract.
package domain

import "github.com/bwmarrin/snowflake"

// Billing periods accepted by the warehouse.
const (
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// MonthsIn returns how many months one billed amount covers, or 0 for an
// unknown period.
func MonthsIn(period string) int64 {
	switch period {
	case PeriodMonthly:
		return 1
	case PeriodYearly:
		return 12
	default:
		return 0
	}
}

// Plan is one plan dimension row. Natural key: (plan_name, period).
// BaseAmount and Currency are fixed at first observation; later
// observations never overwrite them.
type Plan struct {
	PlanKey    snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	PlanName   string       `gorm:"type:text;not null;uniqueIndex:plan_dim_natural_key"`
	Period     string       `gorm:"type:text;not null;uniqueIndex:plan_dim_natural_key"`
	// text keeps the canonical two-decimal form intact under sqlite
	BaseAmount string       `gorm:"type:text;not null"`
	Currency   string       `gorm:"type:text;not null"`
}

func (Plan) TableName() string { return "plan_dim" }
