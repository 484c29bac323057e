package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/metrics"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

const (
	defaultFlow   = "audio"
	defaultDevice = "web"
)

// DebitService request_id ile idempotent kredi düşümü
type DebitService struct {
	store   interfaces.Store
	ledger  interfaces.LedgerServiceInterface
	metrics *metrics.LedgerMetrics
	timeout time.Duration
}

// NewDebitService yeni service oluşturur
func NewDebitService(store interfaces.Store, ledger interfaces.LedgerServiceInterface, m *metrics.LedgerMetrics, timeout time.Duration) *DebitService {
	return &DebitService{
		store:   store,
		ledger:  ledger,
		metrics: m,
		timeout: timeout,
	}
}

// Debit krediyi düşer. Aynı request_id ile tekrar gelen istek ilk sonucu döner.
func (s *DebitService) Debit(ctx context.Context, cmd *models.DebitCommand) (*models.DebitResult, error) {
	// Storage'a dokunmadan önce doğrula
	if cmd.UserID == "" {
		return nil, &apperrors.UnauthorizedError{Message: "kullanıcı kimliği yok"}
	}
	if cmd.Amount <= 0 {
		return nil, apperrors.NewValidationError("amount", cmd.Amount, "amount pozitif bir tam sayı olmalı")
	}

	requestID := cmd.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	flow := cmd.Flow
	if flow == "" {
		flow = defaultFlow
	}
	device := cmd.Device
	if device == "" {
		device = defaultDevice
	}
	meta := models.MutationMeta{
		"request_id": requestID,
		"flow":       flow,
		"device":     device,
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	var result *models.DebitResult
	err := s.store.WithinTx(ctx, func(repos interfaces.Repositories) error {
		// Retry'da fonksiyon baştan çalışır
		result = nil

		claimed, err := repos.DebitRecords().Claim(ctx, &models.DebitRecord{
			RequestID: requestID,
			UserID:    cmd.UserID,
			Amount:    cmd.Amount,
		})
		if err != nil {
			return err
		}

		if !claimed {
			replay, err := s.replay(ctx, repos, cmd.UserID, requestID)
			if err != nil {
				return err
			}
			result = replay
			return nil
		}

		snapshot, err := s.ledger.ApplyDeltaTx(ctx, repos, cmd.UserID, -cmd.Amount, models.ReasonDebit, meta)
		if err != nil {
			// Rollback claim'i de geri alır, request_id tekrar kullanılabilir
			return err
		}

		if err := repos.DebitRecords().Complete(ctx, requestID, snapshot); err != nil {
			return err
		}

		result = &models.DebitResult{RequestID: requestID, BalanceSnapshot: snapshot}
		return nil
	})
	if err != nil {
		s.metrics.ObserveDebit(metrics.ClassifyDebitError(err))
		logDebitFailure(err, cmd, requestID)
		return nil, err
	}

	if result.Replayed {
		s.metrics.ObserveDebit(metrics.DebitReplayed)
		log.Info().
			Str("user_id", cmd.UserID).
			Str("request_id", requestID).
			Msg("🔁 Debit tekrarı, kayıtlı sonuç döndü")
		return result, nil
	}

	s.metrics.ObserveDebit(metrics.DebitApplied)
	s.metrics.ObserveMutation(string(models.ReasonDebit), -cmd.Amount)
	log.Info().
		Str("user_id", cmd.UserID).
		Str("request_id", requestID).
		Int64("amount", cmd.Amount).
		Int64("credits_remaining", result.CreditsRemaining).
		Msg("💳 Kredi düşüldü")

	return result, nil
}

func (s *DebitService) replay(ctx context.Context, repos interfaces.Repositories, userID, requestID string) (*models.DebitResult, error) {
	record, err := repos.DebitRecords().GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if record.UserID != userID {
		return nil, apperrors.NewValidationError("request_id", requestID, "request_id başka bir kullanıcıya ait")
	}
	if record.Status != models.DebitCompleted {
		// Claim ve mutasyon aynı transaction'da; buraya düşmek beklenmez
		return nil, &apperrors.RetryableError{Op: "debit", Err: fmt.Errorf("debit kaydı tamamlanmamış: %s", requestID)}
	}

	return &models.DebitResult{
		RequestID: requestID,
		BalanceSnapshot: models.BalanceSnapshot{
			CreditsRemaining: record.CreditsRemaining,
			CreditsTotal:     record.CreditsTotal,
		},
		Replayed: true,
	}, nil
}

func logDebitFailure(err error, cmd *models.DebitCommand, requestID string) {
	event := log.Error()
	if apiErr, ok := apperrors.AsAPIError(err); ok && apiErr.Status() < 500 {
		event = log.Warn()
	}
	event.
		Err(err).
		Str("user_id", cmd.UserID).
		Str("request_id", requestID).
		Int64("amount", cmd.Amount).
		Msg("Debit başarısız")
}
