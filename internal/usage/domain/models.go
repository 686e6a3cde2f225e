// Package domain contains the usage fact model. Usage events are
// immutable once observed; the natural key is the raw event itself, so
// replaying an overlapping snapshot window cannot duplicate a row.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Fact struct {
	UsageSK        snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	EventTimestamp time.Time    `gorm:"not null;uniqueIndex:usage_facts_event_key"`
	DateKey        int          `gorm:"not null"`
	CustomerID     string       `gorm:"type:text;not null;uniqueIndex:usage_facts_event_key"`
	EventType      string       `gorm:"type:text;not null;uniqueIndex:usage_facts_event_key"`
	FeatureName    string       `gorm:"type:text;not null;uniqueIndex:usage_facts_event_key"`
	DeviceType     string       `gorm:"type:text"`
}

func (Fact) TableName() string { return "usage_facts" }
