package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/revlake/revlake/internal/config"
	"github.com/revlake/revlake/internal/staging/domain"
	"github.com/revlake/revlake/internal/staging/extract"
	"github.com/revlake/revlake/pkg/db/option"
	"github.com/revlake/revlake/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	cfg config.Config

	customers     repository.Repository[domain.RawCustomer]
	subscriptions repository.Repository[domain.RawSubscription]
	appEvents     repository.Repository[domain.RawAppEvent]
}

func New(p Params) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("staging.service"),
		cfg: p.Config,

		customers:     repository.ProvideStore[domain.RawCustomer](p.DB),
		subscriptions: repository.ProvideStore[domain.RawSubscription](p.DB),
		appEvents:     repository.ProvideStore[domain.RawAppEvent](p.DB),
	}
}

// Load refreshes the raw zone from the configured snapshot files. Each
// source is truncated and reloaded in its own transaction so a bad file
// leaves the other sources intact.
func (s *Service) Load(ctx context.Context) (domain.LoadReport, error) {
	var report domain.LoadReport

	customers, skipped, err := s.extractCustomers()
	if err != nil {
		return report, err
	}
	if err := s.replace(ctx, domain.RawCustomer{}.TableName(), func(tx *gorm.DB) error {
		return s.customers.WithTrx(tx).BatchCreate(ctx, asPointers(customers))
	}); err != nil {
		return report, err
	}
	report.Sources = append(report.Sources, domain.SourceLoad{Source: "customers", Rows: len(customers), Skipped: skipped})

	subscriptions, skipped, err := s.extractSubscriptions()
	if err != nil {
		return report, err
	}
	if err := s.replace(ctx, domain.RawSubscription{}.TableName(), func(tx *gorm.DB) error {
		return s.subscriptions.WithTrx(tx).BatchCreate(ctx, asPointers(subscriptions))
	}); err != nil {
		return report, err
	}
	report.Sources = append(report.Sources, domain.SourceLoad{Source: "subscriptions", Rows: len(subscriptions), Skipped: skipped})

	events, skipped, err := s.extractAppEvents()
	if err != nil {
		return report, err
	}
	if err := s.replace(ctx, domain.RawAppEvent{}.TableName(), func(tx *gorm.DB) error {
		return s.appEvents.WithTrx(tx).BatchCreate(ctx, asPointers(events))
	}); err != nil {
		return report, err
	}
	report.Sources = append(report.Sources, domain.SourceLoad{Source: "app_events", Rows: len(events), Skipped: skipped})

	s.log.Info("staging load complete",
		zap.Int("rows", report.TotalRows()),
		zap.Int("skipped", report.TotalSkipped()),
	)
	return report, nil
}

func (s *Service) Customers(ctx context.Context) ([]domain.RawCustomer, error) {
	rows, err := s.customers.Find(ctx, &domain.RawCustomer{}, option.WithOrder("id asc"))
	if err != nil {
		return nil, err
	}
	return dereference(rows), nil
}

func (s *Service) Subscriptions(ctx context.Context) ([]domain.RawSubscription, error) {
	rows, err := s.subscriptions.Find(ctx, &domain.RawSubscription{}, option.WithOrder("id asc"))
	if err != nil {
		return nil, err
	}
	return dereference(rows), nil
}

func (s *Service) AppEvents(ctx context.Context) ([]domain.RawAppEvent, error) {
	rows, err := s.appEvents.Find(ctx, &domain.RawAppEvent{}, option.WithOrder("id asc"))
	if err != nil {
		return nil, err
	}
	return dereference(rows), nil
}

func (s *Service) extractCustomers() ([]domain.RawCustomer, int, error) {
	f, err := s.open(s.cfg.CustomersFile)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return extract.Customers(f)
}

func (s *Service) extractSubscriptions() ([]domain.RawSubscription, int, error) {
	f, err := s.open(s.cfg.SubscriptionsFile)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return extract.Subscriptions(f)
}

func (s *Service) extractAppEvents() ([]domain.RawAppEvent, int, error) {
	f, err := s.open(s.cfg.AppEventsFile)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return extract.AppEvents(f)
}

func (s *Service) open(name string) (*os.File, error) {
	path := filepath.Join(s.cfg.DataDir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source file %s: %w", path, err)
	}
	return f, nil
}

func (s *Service) replace(ctx context.Context, table string, insert func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
		return insert(tx)
	})
}

func asPointers[T any](rows []T) []*T {
	out := make([]*T, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out
}

func dereference[T any](rows []*T) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		out = append(out, *row)
	}
	return out
}
