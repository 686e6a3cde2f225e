package domain

import "time"

// Merge applies the dimension's conflict-resolution rules to an existing
// row and an incoming snapshot: attribute fields are last-write-wins,
// date fields only ever move earlier. Pure so the rules are testable
// without a database.
func Merge(existing, incoming Customer) Customer {
	out := existing
	out.CompanyName = incoming.CompanyName
	out.Country = incoming.Country
	out.Address = incoming.Address
	out.SignupDate = EarlierOf(existing.SignupDate, incoming.SignupDate)
	out.FirstSubscriptionDate = EarlierOf(existing.FirstSubscriptionDate, incoming.FirstSubscriptionDate)
	return out
}

// EarlierOf returns the earlier of two dates, treating the zero value as
// "not yet known".
func EarlierOf(a, b time.Time) time.Time {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	if b.Before(a) {
		return b
	}
	return a
}
