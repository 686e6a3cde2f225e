package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/revlake/revlake/internal/clock"
	customerdomain "github.com/revlake/revlake/internal/customer/domain"
	datedimdomain "github.com/revlake/revlake/internal/datedim/domain"
	"github.com/revlake/revlake/internal/money"
	plandomain "github.com/revlake/revlake/internal/plan/domain"
	stagingdomain "github.com/revlake/revlake/internal/staging/domain"
	"github.com/revlake/revlake/internal/subscription/domain"
	"github.com/revlake/revlake/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	DateSvc     datedimdomain.Service
	PlanSvc     plandomain.Service
	CustomerSvc customerdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	dateSvc     datedimdomain.Service
	planSvc     plandomain.Service
	customerSvc customerdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("subscription.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		dateSvc:     p.DateSvc,
		planSvc:     p.PlanSvc,
		customerSvc: p.CustomerSvc,
	}
}

func (s *Service) Transform(ctx context.Context, rows []stagingdomain.RawSubscription, linked map[string]string) (domain.TransformReport, error) {
	var report domain.TransformReport
	observedAt := s.clock.Now()

	for _, raw := range rows {
		outcome := s.transformOne(ctx, raw, linked, observedAt)
		switch outcome {
		case outcomeAppended:
			report.Appended++
		case outcomeUnchanged:
			report.Unchanged++
		case outcomeMalformed:
			report.SkippedMalformed++
		case outcomeUnresolved:
			report.SkippedUnresolved++
		case outcomeFailed:
			report.Failed++
		}
	}

	return report, nil
}

type outcome int

const (
	outcomeAppended outcome = iota
	outcomeUnchanged
	outcomeMalformed
	outcomeUnresolved
	outcomeFailed
)

func (s *Service) transformOne(ctx context.Context, raw stagingdomain.RawSubscription, linked map[string]string, observedAt time.Time) outcome {
	subscriptionID := strings.TrimSpace(raw.SubscriptionID)
	if subscriptionID == "" {
		return outcomeMalformed
	}
	log := s.log.With(zap.String("subscription_id", subscriptionID))

	obs, ok := s.parseObservation(log, raw, subscriptionID)
	if !ok {
		return outcomeMalformed
	}

	customerID, ok := linked[subscriptionID]
	if !ok || customerID == "" {
		log.Warn("subscription has no customer linkage")
		return outcomeUnresolved
	}

	plan, err := s.planSvc.Resolve(ctx, plandomain.ResolveRequest{
		PlanName:   raw.PlanName,
		Period:     raw.Period,
		BaseAmount: raw.Amount,
		Currency:   raw.Currency,
	})
	if err != nil {
		log.Warn("plan resolution failed", zap.Error(err))
		return outcomeUnresolved
	}

	prior, err := s.latestFact(ctx, subscriptionID)
	if err != nil {
		log.Error("fact history lookup failed", zap.Error(err))
		return outcomeFailed
	}

	transition := domain.Derive(prior, obs, observedAt)
	if transition.Kind == domain.TransitionUnchanged {
		return outcomeUnchanged
	}
	if transition.EffectiveDate.IsZero() {
		log.Warn("state transition has no effective date")
		return outcomeMalformed
	}

	if _, err := s.dateSvc.Ensure(ctx, []time.Time{transition.EffectiveDate}); err != nil {
		log.Error("calendar resolution failed", zap.Error(err))
		return outcomeFailed
	}

	fact := domain.Fact{
		EventSK:        s.genID.Generate(),
		DateKey:        datedimdomain.KeyFor(transition.EffectiveDate),
		CustomerID:     customerID,
		PlanKey:        plan.PlanKey,
		SubscriptionID: subscriptionID,
		MRRAmount:      obs.MRRAmount,
		ChurnFlag:      transition.ChurnFlag,
		IsNewMRRFlag:   transition.IsNewMRRFlag,
		Status:         obs.Status,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&fact).Error
	})
	if err != nil {
		// the state key already exists: another run recorded this exact
		// state, which is the convergent outcome, not a failure
		if db.IsDuplicateKeyErr(err) {
			return outcomeUnchanged
		}
		log.Error("fact append failed", zap.Error(err))
		return outcomeFailed
	}

	if transition.Kind == domain.TransitionNew {
		if err := s.customerSvc.RefineFirstSubscription(ctx, customerID, obs.StartDate); err != nil {
			// refinement is monotone and idempotent; the next run repairs it
			log.Warn("first subscription refinement failed", zap.Error(err))
		}
	}

	log.Info("subscription fact appended",
		zap.String("status", obs.Status),
		zap.String("mrr_amount", obs.MRRAmount),
		zap.Bool("churn", transition.ChurnFlag),
		zap.Bool("new_mrr", transition.IsNewMRRFlag),
	)
	return outcomeAppended
}

// parseObservation validates the raw row and normalizes its amount to
// monthly recurring revenue.
func (s *Service) parseObservation(log *zap.Logger, raw stagingdomain.RawSubscription, subscriptionID string) (domain.Observation, bool) {
	status := strings.ToLower(strings.TrimSpace(raw.Status))
	if status == "" {
		log.Warn("subscription row has no status")
		return domain.Observation{}, false
	}

	startDate, err := stagingdomain.ParseDate(raw.StartDate)
	if err != nil {
		log.Warn("unparseable start date", zap.Error(err))
		return domain.Observation{}, false
	}

	var endDate time.Time
	if strings.TrimSpace(raw.EndDate) != "" {
		endDate, err = stagingdomain.ParseDate(raw.EndDate)
		if err != nil {
			log.Warn("unparseable end date", zap.Error(err))
			return domain.Observation{}, false
		}
	}

	months := plandomain.MonthsIn(strings.ToLower(strings.TrimSpace(raw.Period)))
	if months == 0 {
		log.Warn("unknown billing period", zap.String("period", raw.Period))
		return domain.Observation{}, false
	}
	mrr, err := money.PerMonth(raw.Amount, months)
	if err != nil {
		log.Warn("unparseable amount", zap.Error(err))
		return domain.Observation{}, false
	}

	return domain.Observation{
		SubscriptionID: subscriptionID,
		Status:         status,
		MRRAmount:      mrr,
		StartDate:      startDate,
		EndDate:        endDate,
	}, true
}

func (s *Service) latestFact(ctx context.Context, subscriptionID string) (*domain.Fact, error) {
	var rows []domain.Fact
	err := s.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("date_key desc, event_sk desc").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *Service) History(ctx context.Context, subscriptionID string) ([]domain.Fact, error) {
	var rows []domain.Fact
	err := s.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("date_key desc, event_sk desc").
		Find(&rows).Error
	return rows, err
}
