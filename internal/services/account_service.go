package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/db"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/metrics"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// AccountService signup bonusu ve bakiye okuma
type AccountService struct {
	store          interfaces.Store
	ledger         interfaces.LedgerServiceInterface
	metrics        *metrics.LedgerMetrics
	initialCredits int64
	timeout        time.Duration
}

// NewAccountService yeni service oluşturur
func NewAccountService(store interfaces.Store, ledger interfaces.LedgerServiceInterface, m *metrics.LedgerMetrics, initialCredits int64, timeout time.Duration) *AccountService {
	return &AccountService{
		store:          store,
		ledger:         ledger,
		metrics:        m,
		initialCredits: initialCredits,
		timeout:        timeout,
	}
}

// Signup bakiye satırı yoksa oluşturur ve başlangıç kredisini verir.
// Satır zaten varsa hiçbir şey yazmaz.
func (s *AccountService) Signup(ctx context.Context, userID, phoneE164 string) (*models.SignupResult, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	var result *models.SignupResult
	err := s.store.WithinTx(ctx, func(repos interfaces.Repositories) error {
		result = nil

		created, err := repos.Balances().CreateIfAbsent(ctx, userID)
		if err != nil {
			return err
		}

		if !created {
			balance, err := repos.Balances().GetByUserID(ctx, userID)
			if err != nil {
				return err
			}
			result = &models.SignupResult{User: accountView(balance, phoneE164)}
			return nil
		}

		meta := models.MutationMeta{}
		if phoneE164 != "" {
			meta["phone_e164"] = phoneE164
		}
		if _, err := s.ledger.ApplyDeltaTx(ctx, repos, userID, s.initialCredits, models.ReasonSignupBonus, meta); err != nil {
			return err
		}

		balance, err := repos.Balances().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		result = &models.SignupResult{
			User:           accountView(balance, phoneE164),
			IsNew:          true,
			CreditsAwarded: s.initialCredits,
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Signup başarısız")
		return nil, err
	}

	if result.IsNew {
		s.metrics.ObserveMutation(string(models.ReasonSignupBonus), s.initialCredits)
		log.Info().
			Str("user_id", userID).
			Int64("credits_awarded", result.CreditsAwarded).
			Msg("🎁 Yeni kullanıcı, başlangıç kredisi verildi")
	}

	return result, nil
}

// GetAccount kullanıcının güncel bakiyesini döner
func (s *AccountService) GetAccount(ctx context.Context, userID, phoneE164 string) (*models.AccountView, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	balance, err := s.store.Balances().GetByUserID(ctx, userID)
	if err != nil {
		return nil, db.ClassifyError("get_account", err)
	}

	view := accountView(balance, phoneE164)
	return &view, nil
}

// GetHistory kullanıcının mutasyon geçmişi
func (s *AccountService) GetHistory(ctx context.Context, userID string, limit, offset int) ([]*models.BalanceMutation, error) {
	// Pagination validation
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	history, err := s.store.Mutations().ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, db.ClassifyError("get_history", err)
	}
	if history == nil {
		history = []*models.BalanceMutation{}
	}
	return history, nil
}

func accountView(balance *models.UserBalance, phoneE164 string) models.AccountView {
	view := models.AccountView{
		ID:                 balance.UserID,
		PhoneE164:          phoneE164,
		CreditsRemaining:   balance.CreditsRemaining,
		CreditsTotal:       balance.CreditsTotal,
		LastMutationReason: balance.LastMutationReason,
	}
	if !balance.UpdatedAt.IsZero() {
		updated := balance.UpdatedAt
		view.UpdatedAt = &updated
	}
	return view
}
