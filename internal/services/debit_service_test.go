package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

func newTestDebitService(store *memStore) *DebitService {
	return NewDebitService(store, newTestLedger(store), nil, time.Second)
}

func TestDebitService_Debit_Success(t *testing.T) {
	// Arrange
	store := newMemStore()
	store.seedBalance("u1", 10, 10)
	service := newTestDebitService(store)

	// Act
	result, err := service.Debit(context.Background(), &models.DebitCommand{UserID: "u1", Amount: 3, RequestID: "req-1"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "req-1", result.RequestID)
	assert.Equal(t, int64(7), result.CreditsRemaining)
	assert.Equal(t, int64(10), result.CreditsTotal)
	assert.False(t, result.Replayed)

	balance, _ := store.balance("u1")
	assert.Equal(t, "audio", balance.LastMutationMeta["flow"])
	assert.Equal(t, "web", balance.LastMutationMeta["device"])
	assert.Equal(t, "req-1", balance.LastMutationMeta["request_id"])
}

func TestDebitService_Debit_RejectsBeforeStorage(t *testing.T) {
	for _, amount := range []int64{0, -1, -100} {
		t.Run(fmt.Sprintf("amount=%d", amount), func(t *testing.T) {
			store := newMemStore()
			store.seedBalance("u1", 10, 10)
			service := newTestDebitService(store)

			_, err := service.Debit(context.Background(), &models.DebitCommand{UserID: "u1", Amount: amount})

			var validation *apperrors.ValidationError
			assert.ErrorAs(t, err, &validation)
			assert.Equal(t, 0, store.commits+store.rollbacks)
		})
	}
}

func TestDebitService_Debit_SequentialReplay(t *testing.T) {
	store := newMemStore()
	store.seedBalance("u1", 10, 10)
	service := newTestDebitService(store)
	cmd := &models.DebitCommand{UserID: "u1", Amount: 3, RequestID: "req-1"}

	first, err := service.Debit(context.Background(), cmd)
	require.NoError(t, err)
	second, err := service.Debit(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, first.BalanceSnapshot, second.BalanceSnapshot)
	assert.True(t, second.Replayed)
	assert.Equal(t, 1, store.mutationCount("u1", models.ReasonDebit))

	balance, _ := store.balance("u1")
	assert.Equal(t, int64(7), balance.CreditsRemaining)
}

func TestDebitService_Debit_ConcurrentReplay(t *testing.T) {
	store := newMemStore()
	store.seedBalance("u1", 10, 10)
	service := newTestDebitService(store)

	var wg sync.WaitGroup
	results := make([]*models.DebitResult, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := service.Debit(context.Background(), &models.DebitCommand{UserID: "u1", Amount: 2, RequestID: "same"})
			if assert.NoError(t, err) {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, int64(8), res.CreditsRemaining)
	}
	assert.Equal(t, 1, store.mutationCount("u1", models.ReasonDebit))
}

func TestDebitService_Debit_ConcurrentDistinctRequests(t *testing.T) {
	store := newMemStore()
	store.seedBalance("u1", 5, 5)
	service := newTestDebitService(store)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := service.Debit(context.Background(), &models.DebitCommand{UserID: "u1", Amount: 1, RequestID: fmt.Sprintf("r-%d", i)})
			mu.Lock()
			defer mu.Unlock()
			var insufficient *apperrors.InsufficientCreditsError
			switch {
			case err == nil:
				ok++
			case assert.ErrorAs(t, err, &insufficient):
				rejected++
			}
		}(i)
	}
	wg.Wait()

	balance, _ := store.balance("u1")
	assert.Equal(t, 5, ok)
	assert.Equal(t, 7, rejected)
	assert.Equal(t, int64(0), balance.CreditsRemaining)
}

func TestDebitService_Debit_InsufficientReleasesRequestID(t *testing.T) {
	store := newMemStore()
	store.seedBalance("u1", 2, 10)
	service := newTestDebitService(store)

	_, err := service.Debit(context.Background(), &models.DebitCommand{UserID: "u1", Amount: 3, RequestID: "req-x"})

	var insufficient *apperrors.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(2), insufficient.CreditsRemaining)
	assert.Equal(t, int64(10), insufficient.CreditsTotal)

	// Rollback sonrası aynı request_id yeni bir debit olarak çalışır
	store.seedBalance("u1", 5, 13)
	result, err := service.Debit(context.Background(), &models.DebitCommand{UserID: "u1", Amount: 3, RequestID: "req-x"})
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, int64(2), result.CreditsRemaining)
}

func TestDebitService_Debit_RequestIDOwnedByOtherUser(t *testing.T) {
	store := newMemStore()
	store.seedBalance("u1", 10, 10)
	store.seedBalance("u2", 10, 10)
	service := newTestDebitService(store)

	_, err := service.Debit(context.Background(), &models.DebitCommand{UserID: "u1", Amount: 1, RequestID: "shared"})
	require.NoError(t, err)

	_, err = service.Debit(context.Background(), &models.DebitCommand{UserID: "u2", Amount: 1, RequestID: "shared"})

	var validation *apperrors.ValidationError
	assert.ErrorAs(t, err, &validation)
	balance, _ := store.balance("u2")
	assert.Equal(t, int64(10), balance.CreditsRemaining)
}

func TestDebitService_Debit_GeneratesRequestID(t *testing.T) {
	store := newMemStore()
	store.seedBalance("u1", 10, 10)
	service := newTestDebitService(store)

	first, err := service.Debit(context.Background(), &models.DebitCommand{UserID: "u1", Amount: 1})
	require.NoError(t, err)
	second, err := service.Debit(context.Background(), &models.DebitCommand{UserID: "u1", Amount: 1})
	require.NoError(t, err)

	assert.NotEmpty(t, first.RequestID)
	assert.NotEqual(t, first.RequestID, second.RequestID)
	assert.Equal(t, int64(8), second.CreditsRemaining)
}

func TestDebitService_Debit_UnknownUser(t *testing.T) {
	store := newMemStore()
	service := newTestDebitService(store)

	_, err := service.Debit(context.Background(), &models.DebitCommand{UserID: "ghost", Amount: 1, RequestID: "r"})

	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.DebitRecords().GetByRequestID(context.Background(), "r")
	assert.True(t, apperrors.IsNotFound(err), "başarısız debit kayıt bırakmamalı")
}
