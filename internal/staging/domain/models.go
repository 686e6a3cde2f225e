// Package domain contains persistence models for the raw staging zone.
// Staging rows keep source values as unparsed text; the transform layer
// owns parsing so malformed input can be counted per record instead of
// failing a whole load.
package domain

import "gorm.io/datatypes"

// RawCustomer mirrors one row of the customer snapshot file.
type RawCustomer struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	CustomerID     string `gorm:"type:text"`
	CompanyName    string `gorm:"type:text"`
	Country        string `gorm:"type:text"`
	Address        string `gorm:"type:text"`
	SignupDate     string `gorm:"type:text"`
	SubscriptionID string `gorm:"type:text"`
}

func (RawCustomer) TableName() string { return "stg_customers" }

// RawSubscription mirrors one row of the subscription snapshot file.
type RawSubscription struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	SubscriptionID string `gorm:"type:text"`
	Status         string `gorm:"type:text"`
	StartDate      string `gorm:"type:text"`
	EndDate        string `gorm:"type:text"`
	Currency       string `gorm:"type:text"`
	Amount         string `gorm:"type:text"`
	Period         string `gorm:"type:text"`
	PlanName       string `gorm:"type:text"`
}

func (RawSubscription) TableName() string { return "stg_subscriptions" }

// RawAppEvent mirrors one product-usage event from the JSON-lines feed.
type RawAppEvent struct {
	ID             int64             `gorm:"primaryKey;autoIncrement"`
	EventTimestamp string            `gorm:"type:text"`
	EventType      string            `gorm:"type:text"`
	FeatureName    string            `gorm:"type:text"`
	CustomerID     string            `gorm:"type:text"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
}

func (RawAppEvent) TableName() string { return "stg_app_events" }
