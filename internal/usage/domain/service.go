package domain

import (
	"context"

	stagingdomain "github.com/revlake/revlake/internal/staging/domain"
)

// LoadReport summarizes one usage load batch.
type LoadReport struct {
	Inserted         int
	Deduped          int
	SkippedMalformed int
	SkippedUnknown   int
	Failed           int
}

// Service projects raw app events into the usage fact table.
type Service interface {
	// Load inserts one fact per event not already recorded. Events with
	// an unparseable timestamp or no customer_id are skipped and counted,
	// as are events for customers absent from the customer dimension.
	Load(ctx context.Context, rows []stagingdomain.RawAppEvent) (LoadReport, error)
	// ForCustomer returns recorded facts for one customer, newest first.
	ForCustomer(ctx context.Context, customerID string) ([]Fact, error)
}
