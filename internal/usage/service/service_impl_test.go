package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	customerdomain "github.com/revlake/revlake/internal/customer/domain"
	customerservice "github.com/revlake/revlake/internal/customer/service"
	datedimdomain "github.com/revlake/revlake/internal/datedim/domain"
	datedimservice "github.com/revlake/revlake/internal/datedim/service"
	stagingdomain "github.com/revlake/revlake/internal/staging/domain"
	"github.com/revlake/revlake/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&datedimdomain.Date{},
		&customerdomain.Customer{},
		&domain.Fact{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()

	customerSvc := customerservice.New(customerservice.Params{DB: db, Log: logger})
	_, err = customerSvc.Merge(context.Background(), []stagingdomain.RawCustomer{
		{CustomerID: "C001", CompanyName: "Acme Corp", SignupDate: "2023-01-15", SubscriptionID: "S001"},
	})
	require.NoError(t, err)

	svc := New(Params{
		DB:          db,
		Log:         logger,
		GenID:       node,
		DateSvc:     datedimservice.New(datedimservice.Params{DB: db, Log: logger}),
		CustomerSvc: customerSvc,
	})
	return svc, db
}

func loginEvent() stagingdomain.RawAppEvent {
	return stagingdomain.RawAppEvent{
		EventTimestamp: "2023-03-10T14:30:00Z",
		EventType:      "login",
		FeatureName:    "dashboard",
		CustomerID:     "C001",
		Metadata:       datatypes.JSONMap{"device": "mobile", "session": "abc123"},
	}
}

func TestLoadInsertsFact(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	report, err := svc.Load(ctx, []stagingdomain.RawAppEvent{loginEvent()})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)

	facts, err := svc.ForCustomer(ctx, "C001")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	fact := facts[0]
	assert.Equal(t, "login", fact.EventType)
	assert.Equal(t, "dashboard", fact.FeatureName)
	assert.Equal(t, "mobile", fact.DeviceType)
	assert.Equal(t, 20230310, fact.DateKey)
	assert.True(t, fact.EventTimestamp.Equal(time.Date(2023, time.March, 10, 14, 30, 0, 0, time.UTC)))

	// the event's calendar date lands in the date dimension
	var dates int64
	require.NoError(t, db.Model(&datedimdomain.Date{}).Where("date_key = ?", 20230310).Count(&dates).Error)
	assert.EqualValues(t, 1, dates)
}

func TestLoadDedupesReplayedEvents(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	rows := []stagingdomain.RawAppEvent{loginEvent()}

	_, err := svc.Load(ctx, rows)
	require.NoError(t, err)

	// an overlapping snapshot window replays the same event
	report, err := svc.Load(ctx, rows)
	require.NoError(t, err)
	assert.Zero(t, report.Inserted)
	assert.Equal(t, 1, report.Deduped)

	var count int64
	require.NoError(t, db.Model(&domain.Fact{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestLoadDropsUnknownCustomer(t *testing.T) {
	svc, _ := newService(t)

	evt := loginEvent()
	evt.CustomerID = "C999"
	report, err := svc.Load(context.Background(), []stagingdomain.RawAppEvent{evt})
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedUnknown)
	assert.Zero(t, report.Inserted)
}

func TestLoadSkipsMalformedEvents(t *testing.T) {
	svc, _ := newService(t)

	noCustomer := loginEvent()
	noCustomer.CustomerID = "  "

	badTimestamp := loginEvent()
	badTimestamp.EventTimestamp = "yesterday"

	report, err := svc.Load(context.Background(), []stagingdomain.RawAppEvent{noCustomer, badTimestamp})
	require.NoError(t, err)
	assert.Equal(t, 2, report.SkippedMalformed)
	assert.Zero(t, report.Inserted)
}

func TestLoadDefaultsMissingDevice(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	evt := loginEvent()
	evt.Metadata = datatypes.JSONMap{"session": "abc123"}
	report, err := svc.Load(ctx, []stagingdomain.RawAppEvent{evt})
	require.NoError(t, err)
	require.Equal(t, 1, report.Inserted)

	facts, err := svc.ForCustomer(ctx, "C001")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Empty(t, facts[0].DeviceType)
}
