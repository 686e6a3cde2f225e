package domain

import (
	"context"
	"errors"
	"time"

	stagingdomain "github.com/revlake/revlake/internal/staging/domain"
)

var ErrMissingCustomerID = errors.New("missing_customer_id")

// MergeReport summarizes one merge batch.
type MergeReport struct {
	Created int
	Updated int
	Skipped int
	Failed  int

	// Linked maps subscription_id to customer_id for every row that
	// merged successfully; fact transforms resolve customers through it.
	Linked map[string]string
}

// Service conforms raw customer snapshots into the customer dimension.
type Service interface {
	// Merge upserts each raw row by customer_id. Rows without a
	// customer_id or with an unparseable signup date are skipped and
	// counted; a storage failure on one row never aborts the batch.
	Merge(ctx context.Context, rows []stagingdomain.RawCustomer) (MergeReport, error)
	// Get returns the conformed row, or nil when unknown.
	Get(ctx context.Context, customerID string) (*Customer, error)
	// RefineFirstSubscription lowers first_subscription_date once
	// subscription linkage is known. Later dates are ignored.
	RefineFirstSubscription(ctx context.Context, customerID string, date time.Time) error
}
