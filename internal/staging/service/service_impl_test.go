package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/revlake/revlake/internal/config"
	"github.com/revlake/revlake/internal/staging/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, dir string) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.RawCustomer{},
		&domain.RawSubscription{},
		&domain.RawAppEvent{},
	))

	return New(Params{
		DB:  db,
		Log: zap.NewNop(),
		Config: config.Config{
			DataDir:           dir,
			CustomersFile:     "customers.csv",
			SubscriptionsFile: "subscriptions.csv",
			AppEventsFile:     "app_events.json",
		},
	})
}

func writeFixtures(t *testing.T, dir string) {
	t.Helper()

	customers := "customer_id,company_name,country,address,signup_date,subscription_id\n" +
		"C001,Acme Corp,DE,Main St 1,2023-01-15,S001\n" +
		"C002,Beta GmbH,FR,Rue 2,2023-02-01,S002\n"
	subscriptions := "subscription_id,status,start_date,end_date,currency,amount,period,plan_name\n" +
		"S001,active,2023-01-15,,EUR,50.00,monthly,basic\n" +
		"S002,active,2023-02-01,,EUR,1200.00,yearly,enterprise\n"
	events := `{"event_timestamp":"2023-03-01T10:00:00Z","event_type":"click","feature_name":"reports","customer_id":"C001","metadata":{"device":"mobile"}}` + "\n"

	require.NoError(t, os.WriteFile(filepath.Join(dir, "customers.csv"), []byte(customers), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "subscriptions.csv"), []byte(subscriptions), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app_events.json"), []byte(events), 0o644))
}

func TestLoadIsFullRefresh(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)
	svc := newTestService(t, dir)
	ctx := context.Background()

	report, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.TotalRows())
	assert.Zero(t, report.TotalSkipped())

	// reloading the same snapshot must not accumulate staging rows
	report, err = svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.TotalRows())

	customers, err := svc.Customers(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 2)

	subs, err := svc.Subscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	events, err := svc.AppEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "mobile", events[0].Metadata["device"])
}

func TestLoadMissingFileFails(t *testing.T) {
	svc := newTestService(t, t.TempDir())

	_, err := svc.Load(context.Background())
	assert.Error(t, err)
}
