// Package domain contains the calendar dimension model.
package domain

import "time"

// Date is one calendar-date row, keyed by YYYYMMDD. Immutable once created.
type Date struct {
	DateKey   int       `gorm:"primaryKey;autoIncrement:false;column:date_key"`
	FullDate  time.Time `gorm:"not null"`
	Year      int       `gorm:"not null"`
	Month     int       `gorm:"not null"`
	MonthName string    `gorm:"type:text;not null"`
}

func (Date) TableName() string { return "date_dim" }

// KeyFor computes the surrogate-free calendar key for a timestamp.
func KeyFor(t time.Time) int {
	t = t.UTC()
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// FromTime builds the dimension row for a timestamp's calendar date.
func FromTime(t time.Time) Date {
	t = t.UTC()
	return Date{
		DateKey:   KeyFor(t),
		FullDate:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Year:      t.Year(),
		Month:     int(t.Month()),
		MonthName: t.Month().String(),
	}
}
