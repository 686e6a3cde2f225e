package service

import (
	"context"
	"sort"
	"time"

	"github.com/revlake/revlake/internal/datedim/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("datedim.service"),
	}
}

// Ensure is idempotent by construction: insertion is keyed on date_key
// with a do-nothing conflict clause, so recomputing a date is a no-op.
func (s *Service) Ensure(ctx context.Context, timestamps []time.Time) (int, error) {
	seen := make(map[int]domain.Date)
	for _, ts := range timestamps {
		if ts.IsZero() {
			continue
		}
		row := domain.FromTime(ts)
		seen[row.DateKey] = row
	}
	if len(seen) == 0 {
		return 0, nil
	}

	rows := make([]domain.Date, 0, len(seen))
	for _, row := range seen {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DateKey < rows[j].DateKey })

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date_key"}},
			DoNothing: true,
		}).
		Create(&rows)
	if result.Error != nil {
		return 0, result.Error
	}

	inserted := int(result.RowsAffected)
	if inserted > 0 {
		s.log.Debug("calendar dates created", zap.Int("count", inserted))
	}
	return inserted, nil
}

func (s *Service) Lookup(ctx context.Context, t time.Time) (*domain.Date, error) {
	if t.IsZero() {
		return nil, nil
	}
	var row domain.Date
	err := s.db.WithContext(ctx).
		Where("date_key = ?", domain.KeyFor(t)).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.DateKey == 0 {
		return nil, nil
	}
	return &row, nil
}
