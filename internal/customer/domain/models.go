// Package domain contains the customer dimension model and merge rules.
package domain

import "time"

// Customer is one conformed customer row, keyed by the natural customer_id.
type Customer struct {
	CustomerID            string `gorm:"primaryKey;type:text"`
	CompanyName           string `gorm:"type:text"`
	Country               string `gorm:"type:text"`
	Address               string `gorm:"type:text"`
	SignupDate            time.Time
	FirstSubscriptionDate time.Time
}

func (Customer) TableName() string { return "customer_dim" }
