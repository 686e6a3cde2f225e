package service

import (
	"context"
	"fmt"
	"time"

	"github.com/revlake/revlake/internal/clock"
	customerdomain "github.com/revlake/revlake/internal/customer/domain"
	datedimdomain "github.com/revlake/revlake/internal/datedim/domain"
	"github.com/revlake/revlake/internal/pipeline/domain"
	stagingdomain "github.com/revlake/revlake/internal/staging/domain"
	subscriptiondomain "github.com/revlake/revlake/internal/subscription/domain"
	usagedomain "github.com/revlake/revlake/internal/usage/domain"
	"github.com/revlake/revlake/pkg/log/ctxlogger"
	"github.com/revlake/revlake/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const tracerName = "github.com/revlake/revlake/internal/pipeline"

type Params struct {
	fx.In

	Log           *zap.Logger
	Clock         clock.Clock
	Staging       stagingdomain.Service
	Dates         datedimdomain.Service
	Customers     customerdomain.Service
	Subscriptions subscriptiondomain.Service
	Usage         usagedomain.Service
}

type Service struct {
	log           *zap.Logger
	clock         clock.Clock
	staging       stagingdomain.Service
	dates         datedimdomain.Service
	customers     customerdomain.Service
	subscriptions subscriptiondomain.Service
	usage         usagedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:           p.Log.Named("pipeline.service"),
		clock:         p.Clock,
		staging:       p.Staging,
		dates:         p.Dates,
		customers:     p.Customers,
		subscriptions: p.Subscriptions,
		usage:         p.Usage,
	}
}

func (s *Service) Run(ctx context.Context) (domain.RunReport, error) {
	ctx, runID := correlation.EnsureCorrelationID(ctx)
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID))

	report := domain.RunReport{RunID: runID, StartedAt: s.clock.Now()}
	log := ctxlogger.WithContext(ctx, s.log).With(zap.String("run_id", runID))
	log.Info("pipeline run started")

	err := s.stage(ctx, tracer, "staging.load", func(ctx context.Context) error {
		var err error
		report.Staging, err = s.staging.Load(ctx)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("staging load: %w", err)
	}

	subscriptions, err := s.staging.Subscriptions(ctx)
	if err != nil {
		return report, fmt.Errorf("read staged subscriptions: %w", err)
	}
	events, err := s.staging.AppEvents(ctx)
	if err != nil {
		return report, fmt.Errorf("read staged events: %w", err)
	}
	customers, err := s.staging.Customers(ctx)
	if err != nil {
		return report, fmt.Errorf("read staged customers: %w", err)
	}

	err = s.stage(ctx, tracer, "datedim.ensure", func(ctx context.Context) error {
		created, err := s.dates.Ensure(ctx, gatherTimestamps(subscriptions, events))
		report.DatesCreated = created
		return err
	})
	if err != nil {
		return report, fmt.Errorf("date dimension: %w", err)
	}

	err = s.stage(ctx, tracer, "customer.merge", func(ctx context.Context) error {
		var err error
		report.Customers, err = s.customers.Merge(ctx, customers)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("customer merge: %w", err)
	}

	err = s.stage(ctx, tracer, "subscription.transform", func(ctx context.Context) error {
		var err error
		report.Subscriptions, err = s.subscriptions.Transform(ctx, subscriptions, report.Customers.Linked)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("subscription transform: %w", err)
	}

	err = s.stage(ctx, tracer, "usage.load", func(ctx context.Context) error {
		var err error
		report.Usage, err = s.usage.Load(ctx, events)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("usage load: %w", err)
	}

	report.Duration = s.clock.Now().Sub(report.StartedAt)
	log.Info("pipeline run finished",
		zap.Duration("duration", report.Duration),
		zap.Int("staged_rows", report.Staging.TotalRows()),
		zap.Int("dates_created", report.DatesCreated),
		zap.Int("customers_created", report.Customers.Created),
		zap.Int("customers_updated", report.Customers.Updated),
		zap.Int("facts_appended", report.Subscriptions.Appended),
		zap.Int("facts_unchanged", report.Subscriptions.Unchanged),
		zap.Int("usage_inserted", report.Usage.Inserted),
		zap.Int("usage_deduped", report.Usage.Deduped),
	)
	return report, nil
}

func (s *Service) stage(ctx context.Context, tracer trace.Tracer, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// gatherTimestamps collects every parseable calendar-bearing value from
// the staged rows. Unparseable values are left for the per-record skip
// accounting of the fact stages.
func gatherTimestamps(subscriptions []stagingdomain.RawSubscription, events []stagingdomain.RawAppEvent) []time.Time {
	out := make([]time.Time, 0, len(subscriptions)*2+len(events))
	for _, sub := range subscriptions {
		if t, err := stagingdomain.ParseDate(sub.StartDate); err == nil {
			out = append(out, t)
		}
		if sub.EndDate != "" {
			if t, err := stagingdomain.ParseDate(sub.EndDate); err == nil {
				out = append(out, t)
			}
		}
	}
	for _, evt := range events {
		if t, err := stagingdomain.ParseTimestamp(evt.EventTimestamp); err == nil {
			out = append(out, t)
		}
	}
	return out
}
