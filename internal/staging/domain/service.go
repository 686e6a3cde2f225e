package domain

import "context"

// SourceLoad reports the outcome of loading one source file.
type SourceLoad struct {
	Source  string `json:"source"`
	Rows    int    `json:"rows"`
	Skipped int    `json:"skipped"`
}

// LoadReport aggregates per-source load outcomes for a run.
type LoadReport struct {
	Sources []SourceLoad `json:"sources"`
}

func (r LoadReport) TotalRows() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Rows
	}
	return total
}

func (r LoadReport) TotalSkipped() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Skipped
	}
	return total
}

// Service owns the raw zone: full-refresh loads and staged row access.
type Service interface {
	Load(ctx context.Context) (LoadReport, error)
	Customers(ctx context.Context) ([]RawCustomer, error)
	Subscriptions(ctx context.Context) ([]RawSubscription, error)
	AppEvents(ctx context.Context) ([]RawAppEvent, error)
}
