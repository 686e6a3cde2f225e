package domain

import (
	"context"

	stagingdomain "github.com/revlake/revlake/internal/staging/domain"
)

// TransformReport summarizes one transform batch.
type TransformReport struct {
	Appended          int
	Unchanged         int
	SkippedMalformed  int
	SkippedUnresolved int
	Failed            int
}

// Service is the business-rule engine turning raw subscription snapshots
// into state-transition fact rows.
type Service interface {
	// Transform processes each raw row independently: normalize to MRR,
	// diff against recorded history, append exactly one fact per newly
	// observed state. linked maps subscription_id to customer_id as
	// produced by the customer merge. Bad records are counted, never
	// fatal for the batch.
	Transform(ctx context.Context, rows []stagingdomain.RawSubscription, linked map[string]string) (TransformReport, error)
	// History returns the recorded facts for one subscription, most
	// recent first.
	History(ctx context.Context, subscriptionID string) ([]Fact, error)
}
