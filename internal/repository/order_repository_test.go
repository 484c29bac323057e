package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/db"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

func TestOrderRepository_CreatePending(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO orders (.+) ON CONFLICT \(session_id\) DO NOTHING`).
		WithArgs("cs_1", "u1", "25", int64(25), "MX", false, int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	order := &models.Order{SessionID: "cs_1", UserID: "u1", Package: "25", PackageCredits: 25, Region: models.RegionMX}
	created, err := NewOrderRepository(database).CreatePending(context.Background(), order)

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_MarkPaid_AlreadyPaid(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	// status = 'pending' koşulu tutmaz, satır dönmez
	mock.ExpectQuery(`UPDATE orders (.+) WHERE session_id = \$1 AND status = 'pending'`).
		WillReturnRows(sqlmock.NewRows([]string{"paid_at"}))

	order := &models.Order{SessionID: "cs_1", UserID: "u1", PackageCredits: 25, Region: models.RegionMX}
	err = NewOrderRepository(database).MarkPaid(context.Background(), order)

	var dup *apperrors.DuplicateError
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, "cs_1", dup.Key)
}

func TestOrderRepository_MarkPaid(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	paidAt := time.Now()
	mock.ExpectQuery(`UPDATE orders`).
		WithArgs("cs_2", "", int64(75), "INTL", false, false, true, int64(25), int64(3), int64(1500), "usd").
		WillReturnRows(sqlmock.NewRows([]string{"paid_at"}).AddRow(paidAt))

	order := &models.Order{SessionID: "cs_2", UserID: "u1", Adjustable: true, BaseUnitCredits: 25, Quantity: 3, PackageCredits: 75, Region: models.RegionINTL, AmountTotal: 1500, Currency: "usd"}
	err = NewOrderRepository(database).MarkPaid(context.Background(), order)

	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, order.Status)
	require.NotNil(t, order.PaidAt)
	assert.Equal(t, paidAt, *order.PaidAt)
}

func TestOrderRepository_GetForUpdate(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	now := time.Now()
	cols := []string{"session_id", "user_id", "package", "package_credits", "region", "status",
		"first_purchase", "reward_given", "adjustable", "base_unit_credits", "quantity",
		"amount_total", "currency", "created_at", "updated_at", "paid_at"}
	mock.ExpectQuery(`SELECT (.+) FROM orders WHERE session_id = \$1 FOR UPDATE`).
		WithArgs("cs_1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("cs_1", "u1", "", 0, "INTL", "pending", false, false, true, 25, nil, int64(1999), "usd", now, now, nil))

	order, err := NewOrderRepository(database).GetForUpdate(context.Background(), "cs_1")

	require.NoError(t, err)
	assert.True(t, order.Adjustable)
	assert.Equal(t, int64(25), order.BaseUnitCredits)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Nil(t, order.PaidAt)
	assert.Equal(t, int64(1999), order.AmountTotal)
	assert.Equal(t, "19.99", order.AmountDecimal())
}

func TestOrderRepository_HasPaidOrder(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("u1", "cs_2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	has, err := NewOrderRepository(database).HasPaidOrder(context.Background(), "u1", "cs_2")

	require.NoError(t, err)
	assert.True(t, has)
}

func TestStore_WithinTx_UsesTransaction(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_balances`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewStore(database, db.TxOptions{MaxAttempts: 1, Timeout: time.Second})
	err = store.WithinTx(context.Background(), func(repos interfaces.Repositories) error {
		_, err := repos.Balances().CreateIfAbsent(context.Background(), "u1")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
