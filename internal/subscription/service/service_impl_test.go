package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/revlake/revlake/internal/clock"
	customerdomain "github.com/revlake/revlake/internal/customer/domain"
	customerservice "github.com/revlake/revlake/internal/customer/service"
	datedimdomain "github.com/revlake/revlake/internal/datedim/domain"
	datedimservice "github.com/revlake/revlake/internal/datedim/service"
	plandomain "github.com/revlake/revlake/internal/plan/domain"
	planservice "github.com/revlake/revlake/internal/plan/service"
	stagingdomain "github.com/revlake/revlake/internal/staging/domain"
	"github.com/revlake/revlake/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	svc       domain.Service
	customers customerdomain.Service
	clk       *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&datedimdomain.Date{},
		&plandomain.Plan{},
		&customerdomain.Customer{},
		&domain.Fact{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2023, time.July, 1, 8, 0, 0, 0, time.UTC))

	dateSvc := datedimservice.New(datedimservice.Params{DB: db, Log: logger})
	planSvc := planservice.New(planservice.Params{DB: db, Log: logger, GenID: node})
	customerSvc := customerservice.New(customerservice.Params{DB: db, Log: logger})

	svc := New(Params{
		DB:          db,
		Log:         logger,
		GenID:       node,
		Clock:       clk,
		DateSvc:     dateSvc,
		PlanSvc:     planSvc,
		CustomerSvc: customerSvc,
	})

	return &fixture{db: db, svc: svc, customers: customerSvc, clk: clk}
}

func (f *fixture) mergeCustomers(t *testing.T, ctx context.Context) map[string]string {
	t.Helper()
	report, err := f.customers.Merge(ctx, []stagingdomain.RawCustomer{
		{CustomerID: "C001", CompanyName: "Acme Corp", SignupDate: "2023-01-15", SubscriptionID: "S001"},
		{CustomerID: "C002", CompanyName: "Beta GmbH", SignupDate: "2023-02-01", SubscriptionID: "S002"},
	})
	require.NoError(t, err)
	return report.Linked
}

func (f *fixture) factCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&domain.Fact{}).Count(&count).Error)
	return count
}

func activeMonthly() stagingdomain.RawSubscription {
	return stagingdomain.RawSubscription{
		SubscriptionID: "S001",
		Status:         "active",
		StartDate:      "2023-01-15",
		Currency:       "EUR",
		Amount:         "50.00",
		Period:         "monthly",
		PlanName:       "basic",
	}
}

func TestTransformNewSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	linked := f.mergeCustomers(t, ctx)

	report, err := f.svc.Transform(ctx, []stagingdomain.RawSubscription{activeMonthly()}, linked)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Appended)
	assert.Zero(t, report.Unchanged)

	facts, err := f.svc.History(ctx, "S001")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	fact := facts[0]
	assert.Equal(t, "50.00", fact.MRRAmount)
	assert.Equal(t, "active", fact.Status)
	assert.True(t, fact.IsNewMRRFlag)
	assert.False(t, fact.ChurnFlag)
	assert.Equal(t, 20230115, fact.DateKey)
	assert.Equal(t, "C001", fact.CustomerID)
	assert.NotZero(t, fact.PlanKey)
}

func TestTransformNormalizesYearlyToMRR(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	linked := f.mergeCustomers(t, ctx)

	row := stagingdomain.RawSubscription{
		SubscriptionID: "S002",
		Status:         "active",
		StartDate:      "2023-02-01",
		Currency:       "EUR",
		Amount:         "1200.00",
		Period:         "yearly",
		PlanName:       "enterprise",
	}
	report, err := f.svc.Transform(ctx, []stagingdomain.RawSubscription{row}, linked)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Appended)

	facts, err := f.svc.History(ctx, "S002")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "100.00", facts[0].MRRAmount)
}

func TestFactAmountSurvivesStorageRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	linked := f.mergeCustomers(t, ctx)

	_, err := f.svc.Transform(ctx, []stagingdomain.RawSubscription{activeMonthly()}, linked)
	require.NoError(t, err)

	// the stored column must keep the canonical two-decimal text; a lossy
	// round-trip would make every unchanged replay look like a change
	var stored string
	require.NoError(t, f.db.Raw(
		"SELECT mrr_amount FROM subscription_facts WHERE subscription_id = ?", "S001",
	).Scan(&stored).Error)
	assert.Equal(t, "50.00", stored)

	prior := domain.Fact{Status: "active", MRRAmount: stored}
	tr := domain.Derive(&prior, domain.Observation{Status: "active", MRRAmount: "50.00"}, f.clk.Now())
	assert.Equal(t, domain.TransitionUnchanged, tr.Kind)
}

func TestTransformIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	linked := f.mergeCustomers(t, ctx)
	rows := []stagingdomain.RawSubscription{activeMonthly()}

	_, err := f.svc.Transform(ctx, rows, linked)
	require.NoError(t, err)

	report, err := f.svc.Transform(ctx, rows, linked)
	require.NoError(t, err)
	assert.Zero(t, report.Appended)
	assert.Equal(t, 1, report.Unchanged)
	assert.EqualValues(t, 1, f.factCount(t))
}

func TestTransformChurnSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	linked := f.mergeCustomers(t, ctx)

	_, err := f.svc.Transform(ctx, []stagingdomain.RawSubscription{activeMonthly()}, linked)
	require.NoError(t, err)

	cancelled := activeMonthly()
	cancelled.Status = "cancelled"
	cancelled.EndDate = "2023-06-30"

	report, err := f.svc.Transform(ctx, []stagingdomain.RawSubscription{cancelled}, linked)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Appended)

	facts, err := f.svc.History(ctx, "S001")
	require.NoError(t, err)
	require.Len(t, facts, 2)
	churnFact := facts[0]
	assert.Equal(t, "cancelled", churnFact.Status)
	assert.True(t, churnFact.ChurnFlag)
	assert.False(t, churnFact.IsNewMRRFlag)
	assert.Equal(t, 20230630, churnFact.DateKey)

	// re-observing the cancelled state must not append a third row
	report, err = f.svc.Transform(ctx, []stagingdomain.RawSubscription{cancelled}, linked)
	require.NoError(t, err)
	assert.Zero(t, report.Appended)
	assert.Equal(t, 1, report.Unchanged)
	assert.EqualValues(t, 2, f.factCount(t))
}

func TestTransformReactivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	linked := f.mergeCustomers(t, ctx)

	_, err := f.svc.Transform(ctx, []stagingdomain.RawSubscription{activeMonthly()}, linked)
	require.NoError(t, err)

	cancelled := activeMonthly()
	cancelled.Status = "cancelled"
	cancelled.EndDate = "2023-06-30"
	_, err = f.svc.Transform(ctx, []stagingdomain.RawSubscription{cancelled}, linked)
	require.NoError(t, err)

	// comes back on a bigger plan: new MRR, dated at observation time
	reactivated := activeMonthly()
	reactivated.Amount = "75.00"
	report, err := f.svc.Transform(ctx, []stagingdomain.RawSubscription{reactivated}, linked)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Appended)

	facts, err := f.svc.History(ctx, "S001")
	require.NoError(t, err)
	require.Len(t, facts, 3)
	latest := facts[0]
	assert.Equal(t, "75.00", latest.MRRAmount)
	assert.True(t, latest.IsNewMRRFlag)
	assert.False(t, latest.ChurnFlag)
	assert.Equal(t, 20230701, latest.DateKey)
}

func TestTransformRefinesFirstSubscriptionDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	linked := f.mergeCustomers(t, ctx)

	// subscription started before the customer's recorded signup
	early := activeMonthly()
	early.StartDate = "2022-11-01"
	_, err := f.svc.Transform(ctx, []stagingdomain.RawSubscription{early}, linked)
	require.NoError(t, err)

	row, err := f.customers.Get(ctx, "C001")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, time.November, 1, 0, 0, 0, 0, time.UTC), row.FirstSubscriptionDate.UTC())
}

func TestTransformSkipsBadRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	linked := f.mergeCustomers(t, ctx)

	unlinked := activeMonthly()
	unlinked.SubscriptionID = "S999"

	badAmount := activeMonthly()
	badAmount.Amount = "fifty"

	badPeriod := activeMonthly()
	badPeriod.Period = "weekly"

	badDate := activeMonthly()
	badDate.StartDate = "soon"

	report, err := f.svc.Transform(ctx, []stagingdomain.RawSubscription{unlinked, badAmount, badPeriod, badDate}, linked)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedUnresolved)
	assert.Equal(t, 3, report.SkippedMalformed)
	assert.Zero(t, report.Appended)
	assert.EqualValues(t, 0, f.factCount(t))
}
