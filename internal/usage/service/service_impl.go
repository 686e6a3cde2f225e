package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/revlake/revlake/internal/customer/domain"
	datedimdomain "github.com/revlake/revlake/internal/datedim/domain"
	stagingdomain "github.com/revlake/revlake/internal/staging/domain"
	"github.com/revlake/revlake/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	DateSvc     datedimdomain.Service
	CustomerSvc customerdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	dateSvc     datedimdomain.Service
	customerSvc customerdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("usage.service"),
		genID:       p.GenID,
		dateSvc:     p.DateSvc,
		customerSvc: p.CustomerSvc,
	}
}

func (s *Service) Load(ctx context.Context, rows []stagingdomain.RawAppEvent) (domain.LoadReport, error) {
	var report domain.LoadReport

	for _, raw := range rows {
		switch s.loadOne(ctx, raw) {
		case outcomeInserted:
			report.Inserted++
		case outcomeDeduped:
			report.Deduped++
		case outcomeMalformed:
			report.SkippedMalformed++
		case outcomeUnknownCustomer:
			report.SkippedUnknown++
		case outcomeFailed:
			report.Failed++
		}
	}

	s.log.Info("usage load finished",
		zap.Int("inserted", report.Inserted),
		zap.Int("deduped", report.Deduped),
		zap.Int("skipped_malformed", report.SkippedMalformed),
		zap.Int("skipped_unknown_customer", report.SkippedUnknown),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

type outcome int

const (
	outcomeInserted outcome = iota
	outcomeDeduped
	outcomeMalformed
	outcomeUnknownCustomer
	outcomeFailed
)

func (s *Service) loadOne(ctx context.Context, raw stagingdomain.RawAppEvent) outcome {
	customerID := strings.TrimSpace(raw.CustomerID)
	if customerID == "" {
		s.log.Warn("usage event has no customer_id", zap.String("event_type", raw.EventType))
		return outcomeMalformed
	}
	log := s.log.With(zap.String("customer_id", customerID))

	ts, err := stagingdomain.ParseTimestamp(raw.EventTimestamp)
	if err != nil {
		log.Warn("unparseable event timestamp", zap.String("raw", raw.EventTimestamp), zap.Error(err))
		return outcomeMalformed
	}

	known, err := s.customerSvc.Get(ctx, customerID)
	if err != nil {
		log.Error("customer lookup failed", zap.Error(err))
		return outcomeFailed
	}
	if known == nil {
		// usage for a customer the dimension has never seen carries no
		// analytical meaning; drop it without aborting the batch
		return outcomeUnknownCustomer
	}

	if _, err := s.dateSvc.Ensure(ctx, []time.Time{ts}); err != nil {
		log.Error("calendar resolution failed", zap.Error(err))
		return outcomeFailed
	}

	fact := domain.Fact{
		UsageSK:        s.genID.Generate(),
		EventTimestamp: ts,
		DateKey:        datedimdomain.KeyFor(ts),
		CustomerID:     customerID,
		EventType:      strings.TrimSpace(raw.EventType),
		FeatureName:    strings.TrimSpace(raw.FeatureName),
		DeviceType:     deviceType(raw.Metadata),
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&fact)
	if res.Error != nil {
		log.Error("usage fact insert failed", zap.Error(res.Error))
		return outcomeFailed
	}
	if res.RowsAffected == 0 {
		return outcomeDeduped
	}
	return outcomeInserted
}

// deviceType projects the originating device out of the free-form event
// metadata. Anything other than a string under "device" maps to empty.
func deviceType(metadata map[string]any) string {
	if metadata == nil {
		return ""
	}
	v, ok := metadata["device"].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func (s *Service) ForCustomer(ctx context.Context, customerID string) ([]domain.Fact, error) {
	var rows []domain.Fact
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("event_timestamp desc, usage_sk desc").
		Find(&rows).Error
	return rows, err
}
