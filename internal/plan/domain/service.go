package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidPlanName = errors.New("invalid_plan_name")
	ErrInvalidPeriod   = errors.New("invalid_period")
	ErrResolveFailed   = errors.New("plan_resolve_failed")
)

// ResolveRequest carries one observed (plan, period) tuple with the
// economics seen alongside it.
type ResolveRequest struct {
	PlanName   string
	Period     string
	BaseAmount string
	Currency   string
}

// Service maps natural plan keys to stable surrogate keys.
type Service interface {
	// Resolve returns the plan row for (plan_name, period), creating it on
	// first sight. Existing rows are returned untouched: plan economics
	// stay at their first-observed values even when the request differs.
	Resolve(ctx context.Context, req ResolveRequest) (Plan, error)
}
