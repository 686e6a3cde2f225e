// Package domain defines the run contract for the warehouse pipeline:
// one run observes the current snapshots and converges the dimensional
// schema, and any number of re-runs over the same data are no-ops.
package domain

import (
	"context"
	"time"

	customerdomain "github.com/revlake/revlake/internal/customer/domain"
	stagingdomain "github.com/revlake/revlake/internal/staging/domain"
	subscriptiondomain "github.com/revlake/revlake/internal/subscription/domain"
	usagedomain "github.com/revlake/revlake/internal/usage/domain"
)

// RunReport aggregates per-stage outcomes for one pipeline run.
type RunReport struct {
	RunID         string
	StartedAt     time.Time
	Duration      time.Duration
	Staging       stagingdomain.LoadReport
	DatesCreated  int
	Customers     customerdomain.MergeReport
	Subscriptions subscriptiondomain.TransformReport
	Usage         usagedomain.LoadReport
}

type Service interface {
	// Run executes one observe-and-converge pass: raw zone refresh,
	// dimension upserts, then fact appends. A malformed record is
	// counted and skipped inside its stage; only a failure to read a
	// source file aborts the run.
	Run(ctx context.Context) (RunReport, error)
}
