package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/metrics"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// LedgerService bakiye üzerindeki tek yazma yolu.
// Eşzamanlılık veritabanı transaction'ı ile sağlanır, process içi kilit yoktur.
type LedgerService struct {
	store   interfaces.Store
	metrics *metrics.LedgerMetrics
	timeout time.Duration
}

// NewLedgerService yeni service oluşturur
func NewLedgerService(store interfaces.Store, m *metrics.LedgerMetrics, timeout time.Duration) *LedgerService {
	return &LedgerService{
		store:   store,
		metrics: m,
		timeout: timeout,
	}
}

// ApplyDelta delta'yı kendi transaction'ında uygular
func (s *LedgerService) ApplyDelta(ctx context.Context, userID string, delta int64, reason models.MutationReason, meta models.MutationMeta) (models.BalanceSnapshot, error) {
	if err := validateDelta(userID, delta, reason); err != nil {
		return models.BalanceSnapshot{}, err
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	var snapshot models.BalanceSnapshot
	err := s.store.WithinTx(ctx, func(repos interfaces.Repositories) error {
		var txErr error
		snapshot, txErr = s.ApplyDeltaTx(ctx, repos, userID, delta, reason, meta)
		return txErr
	})
	if err != nil {
		return models.BalanceSnapshot{}, err
	}

	s.metrics.ObserveMutation(string(reason), delta)
	return snapshot, nil
}

// ApplyDeltaTx çağıranın transaction'ı içinde delta uygular.
// Pozitif delta eksik bakiye satırını oluşturur; negatif delta eksik satırda NotFound döner.
func (s *LedgerService) ApplyDeltaTx(ctx context.Context, repos interfaces.Repositories, userID string, delta int64, reason models.MutationReason, meta models.MutationMeta) (models.BalanceSnapshot, error) {
	if err := validateDelta(userID, delta, reason); err != nil {
		return models.BalanceSnapshot{}, err
	}

	if delta > 0 {
		if _, err := repos.Balances().CreateIfAbsent(ctx, userID); err != nil {
			return models.BalanceSnapshot{}, err
		}
	}

	// 1. Satırı kilitle
	balance, err := repos.Balances().GetForUpdate(ctx, userID)
	if err != nil {
		return models.BalanceSnapshot{}, err
	}

	// 2. Negatife düşme kontrolü (clamp yok)
	newRemaining := balance.CreditsRemaining + delta
	if newRemaining < 0 {
		return models.BalanceSnapshot{}, &apperrors.InsufficientCreditsError{
			UserID:           userID,
			Requested:        -delta,
			CreditsRemaining: balance.CreditsRemaining,
			CreditsTotal:     balance.CreditsTotal,
		}
	}

	// 3. Bakiyeyi yaz
	balance.CreditsRemaining = newRemaining
	if delta > 0 {
		balance.CreditsTotal += delta
	}
	balance.LastMutationReason = reason
	balance.LastMutationMeta = meta
	if err := repos.Balances().Update(ctx, balance); err != nil {
		return models.BalanceSnapshot{}, err
	}

	// 4. Audit kaydı
	if err := repos.Mutations().Append(ctx, &models.BalanceMutation{
		UserID:           userID,
		Delta:            delta,
		Reason:           reason,
		Meta:             meta,
		CreditsRemaining: balance.CreditsRemaining,
		CreditsTotal:     balance.CreditsTotal,
	}); err != nil {
		return models.BalanceSnapshot{}, err
	}

	log.Debug().
		Str("user_id", userID).
		Int64("delta", delta).
		Str("reason", string(reason)).
		Int64("credits_remaining", balance.CreditsRemaining).
		Int64("credits_total", balance.CreditsTotal).
		Msg("Bakiye mutasyonu uygulandı")

	return balance.Snapshot(), nil
}

func validateDelta(userID string, delta int64, reason models.MutationReason) error {
	if userID == "" {
		return apperrors.NewValidationError("user_id", userID, "kullanıcı id boş olamaz")
	}
	if delta == 0 {
		return apperrors.NewValidationError("delta", delta, "delta sıfır olamaz")
	}
	if !reason.Valid() {
		return apperrors.NewValidationError("reason", reason, "geçersiz mutasyon sebebi: %s", reason)
	}
	return nil
}

// withStoreTimeout store çağrılarına üst süre koyar
func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
