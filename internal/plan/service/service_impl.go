package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/revlake/revlake/internal/money"
	"github.com/revlake/revlake/internal/plan/domain"
	"github.com/revlake/revlake/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
	}
}

// Resolve is an insert-if-absent guarded by the natural-key unique
// constraint. Two concurrent resolutions of the same key converge on one
// row: the loser's insert fails with a duplicate-key error and is retried
// as a read.
func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (domain.Plan, error) {
	name := strings.TrimSpace(req.PlanName)
	if name == "" {
		return domain.Plan{}, domain.ErrInvalidPlanName
	}
	period := strings.ToLower(strings.TrimSpace(req.Period))
	if domain.MonthsIn(period) == 0 {
		return domain.Plan{}, fmt.Errorf("%w: %q", domain.ErrInvalidPeriod, req.Period)
	}

	if existing, err := s.find(ctx, name, period); err != nil {
		return domain.Plan{}, err
	} else if existing != nil {
		return *existing, nil
	}

	baseAmount, err := money.Canonical(req.BaseAmount)
	if err != nil {
		return domain.Plan{}, err
	}

	row := domain.Plan{
		PlanKey:    s.genID.Generate(),
		PlanName:   name,
		Period:     period,
		BaseAmount: baseAmount,
		Currency:   strings.ToUpper(strings.TrimSpace(req.Currency)),
	}
	createErr := s.db.WithContext(ctx).Create(&row).Error
	if createErr == nil {
		s.log.Info("plan created",
			zap.String("plan_name", name),
			zap.String("period", period),
			zap.String("plan_key", row.PlanKey.String()),
		)
		return row, nil
	}
	if !db.IsDuplicateKeyErr(createErr) {
		return domain.Plan{}, createErr
	}

	// Lost the race; the winner's row is the stable one.
	existing, err := s.find(ctx, name, period)
	if err != nil {
		return domain.Plan{}, err
	}
	if existing == nil {
		return domain.Plan{}, fmt.Errorf("%w: %s/%s: %v", domain.ErrResolveFailed, name, period, createErr)
	}
	return *existing, nil
}

func (s *Service) find(ctx context.Context, name, period string) (*domain.Plan, error) {
	var row domain.Plan
	err := s.db.WithContext(ctx).
		Where("plan_name = ? AND period = ?", name, period).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.PlanKey == 0 {
		return nil, nil
	}
	return &row, nil
}
