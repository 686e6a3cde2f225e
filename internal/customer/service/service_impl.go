package service

import (
	"context"
	"strings"
	"time"

	"github.com/revlake/revlake/internal/customer/domain"
	stagingdomain "github.com/revlake/revlake/internal/staging/domain"
	"github.com/revlake/revlake/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
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
		log: p.Log.Named("customer.service"),
	}
}

func (s *Service) Merge(ctx context.Context, rows []stagingdomain.RawCustomer) (domain.MergeReport, error) {
	report := domain.MergeReport{Linked: make(map[string]string)}

	for _, raw := range rows {
		customerID := strings.TrimSpace(raw.CustomerID)
		if customerID == "" {
			report.Skipped++
			continue
		}
		signup, err := stagingdomain.ParseDate(raw.SignupDate)
		if err != nil {
			s.log.Warn("customer row skipped",
				zap.String("customer_id", customerID),
				zap.Error(err),
			)
			report.Skipped++
			continue
		}

		incoming := domain.Customer{
			CustomerID:  customerID,
			CompanyName: strings.TrimSpace(raw.CompanyName),
			Country:     strings.TrimSpace(raw.Country),
			Address:     strings.TrimSpace(raw.Address),
			SignupDate:  signup,
			// refined later from subscription linkage
			FirstSubscriptionDate: signup,
		}

		created, err := s.upsert(ctx, incoming)
		if err != nil {
			s.log.Error("customer merge failed",
				zap.String("customer_id", customerID),
				zap.Error(err),
			)
			report.Failed++
			continue
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
		if subscriptionID := strings.TrimSpace(raw.SubscriptionID); subscriptionID != "" {
			report.Linked[subscriptionID] = customerID
		}
	}

	return report, nil
}

// upsert runs one customer's merge in its own scoped transaction. A
// duplicate-key error on insert means a concurrent run created the row
// first; it is retried once down the merge-update path.
func (s *Service) upsert(ctx context.Context, incoming domain.Customer) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := find(tx, incoming.CustomerID)
		if err != nil {
			return err
		}
		if existing == nil {
			insertErr := tx.Create(&incoming).Error
			if insertErr == nil {
				created = true
				return nil
			}
			if !db.IsDuplicateKeyErr(insertErr) {
				return insertErr
			}
			existing, err = find(tx, incoming.CustomerID)
			if err != nil {
				return err
			}
			if existing == nil {
				return insertErr
			}
		}

		merged := domain.Merge(*existing, incoming)
		return tx.Model(&domain.Customer{}).
			Where("customer_id = ?", merged.CustomerID).
			Updates(map[string]any{
				"company_name":            merged.CompanyName,
				"country":                 merged.Country,
				"address":                 merged.Address,
				"signup_date":             merged.SignupDate,
				"first_subscription_date": merged.FirstSubscriptionDate,
			}).Error
	})
	return created, err
}

func (s *Service) Get(ctx context.Context, customerID string) (*domain.Customer, error) {
	return find(s.db.WithContext(ctx), customerID)
}

func (s *Service) RefineFirstSubscription(ctx context.Context, customerID string, date time.Time) error {
	if date.IsZero() {
		return nil
	}
	// conditional update keeps the refinement monotone under re-runs
	return s.db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("customer_id = ? AND (first_subscription_date IS NULL OR first_subscription_date > ?)", customerID, date).
		Update("first_subscription_date", date).Error
}

func find(tx *gorm.DB, customerID string) (*domain.Customer, error) {
	var row domain.Customer
	err := tx.Where("customer_id = ?", customerID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.CustomerID == "" {
		return nil, nil
	}
	return &row, nil
}
