package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iou-ledger/internal/domain"
	"iou-ledger/internal/repository/postgres"
	"iou-ledger/internal/service"
)

// prepareDB connects to LEDGER_TEST_DATABASE_URL, retrying while the server
// starts. Tests are skipped when the variable is unset.
func prepareDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL not set")
	}

	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				break
			}
		}
		time.Sleep(2 * time.Second)
	}
	require.NoError(t, err, "failed to connect to database")

	store := postgres.NewStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	_, err = db.Exec("TRUNCATE payments, debt_lines, debts")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIntegration_ConcurrentPayments(t *testing.T) {
	db := prepareDB(t)
	ledger := service.NewLedgerService(postgres.NewStore(db), service.LedgerOptions{MaxRetries: 5})
	ctx := context.Background()
	admin := domain.ActorContext{ActorID: "admin", Role: domain.RoleAdmin}

	debt, err := ledger.CreateDebt(ctx, admin, domain.NewDebt{
		OwnerCode: "PGX", IssueDate: "240101", SourceType: domain.SourceHand,
		Lines: []domain.LineInput{{Client: "c", Amount: "100.00"}},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, amount := range []string{"30", "70"} {
		wg.Add(1)
		go func(amount string) {
			defer wg.Done()
			_, err := ledger.AddPayment(ctx, admin, debt.ID, domain.PaymentInput{PayerName: "X", Amount: amount, Date: "240105"})
			errs <- err
		}(amount)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := ledger.GetDebt(ctx, admin, debt.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid().Equal(decimal.NewFromInt(100)))
	assert.Equal(t, domain.StatusPaid, got.Status)
}

func TestIntegration_ConcurrentManualCreate(t *testing.T) {
	db := prepareDB(t)
	ledger := service.NewLedgerService(postgres.NewStore(db), service.LedgerOptions{MaxRetries: 5})
	ctx := context.Background()
	admin := domain.ActorContext{ActorID: "admin", Role: domain.RoleAdmin}

	const n = 10
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := ledger.CreateDebt(ctx, admin, domain.NewDebt{
				OwnerCode: "PGY", IssueDate: "240101", SourceType: domain.SourceHand,
				Lines: []domain.LineInput{{Client: "c", Amount: "1"}},
			})
			if assert.NoError(t, err) {
				ids <- d.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}
