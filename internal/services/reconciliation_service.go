package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/metrics"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// Aynı event paralel bir teslimatta kaydedildi; mutasyon geri alınmalı
var errEventAlreadyRecorded = errors.New("event başka bir teslimatta kaydedildi")

// ReconciliationService ödeme sağlayıcı event'lerini bakiyeye uygular
type ReconciliationService struct {
	store    interfaces.Store
	ledger   interfaces.LedgerServiceInterface
	provider interfaces.PaymentProvider
	resolver *PackageResolver
	cache    interfaces.SeenCache
	metrics  *metrics.LedgerMetrics
	timeout  time.Duration
}

// NewReconciliationService yeni service oluşturur. cache nil olabilir.
func NewReconciliationService(store interfaces.Store, ledger interfaces.LedgerServiceInterface, provider interfaces.PaymentProvider, resolver *PackageResolver, cache interfaces.SeenCache, m *metrics.LedgerMetrics, timeout time.Duration) *ReconciliationService {
	return &ReconciliationService{
		store:    store,
		ledger:   ledger,
		provider: provider,
		resolver: resolver,
		cache:    cache,
		metrics:  m,
		timeout:  timeout,
	}
}

// reconcileInput webhook ve client confirm için ortak girdi
type reconcileInput struct {
	eventID   string // Client confirm'de boş
	eventType string
	session   *models.ProviderSession
	userID    string
	credits   *SessionCredits
}

// HandleWebhook imzayı doğrular ve event'i en fazla bir kez uygular
func (s *ReconciliationService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.WebhookResult, error) {
	event, err := s.provider.VerifyWebhook(payload, signature)
	if err != nil {
		log.Warn().Err(err).Int("payload_bytes", len(payload)).Msg("⚠️ Webhook doğrulanamadı")
		if _, ok := apperrors.AsAPIError(err); ok {
			return nil, err
		}
		return nil, &apperrors.SignatureError{Err: err}
	}

	logger := log.With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()
	result := &models.WebhookResult{Received: true, EventID: event.ID}

	// Hızlı yol: cache ve salt okunur kontrol
	if s.seen(ctx, event.ID) {
		return s.duplicateEvent(logger, event, result), nil
	}
	exists, err := s.withTimeout(ctx, func(ctx context.Context) (bool, error) {
		return s.store.PaymentEvents().Exists(ctx, event.ID)
	})
	if err != nil {
		return nil, toRetryable("webhook_event_lookup", err)
	}
	if exists {
		s.markSeen(ctx, event.ID)
		return s.duplicateEvent(logger, event, result), nil
	}

	session := event.Session
	switch {
	case event.Type == models.EventCheckoutCompleted && session != nil:
		if !session.IsSettled() {
			logger.Info().Str("payment_status", session.PaymentStatus).Msg("Ödeme henüz tamamlanmadı, event yok sayıldı")
			return s.ignoreEvent(ctx, logger, event, result, models.ReasonPaymentNotSettled)
		}
	case event.Type == models.EventCheckoutAsyncPaymentSucceeded && session != nil:
	default:
		logger.Debug().Msg("İşlenmeyen event tipi")
		return s.ignoreEvent(ctx, logger, event, result, models.ReasonUnhandledEventType)
	}

	userID := session.UserID()
	if userID == "" {
		logger.Warn().Str("session_id", session.ID).Msg("⚠️ Session kullanıcı referansı içermiyor, event yok sayıldı")
		return s.ignoreEvent(ctx, logger, event, result, models.ReasonMissingUserReference)
	}

	// Ödenmiş sipariş sağlayıcıya gitmeden onaylanır; kesin kontrol reconcile içindeki kilittir
	paid, err := s.paidOrder(ctx, session.ID)
	if err != nil {
		return nil, toRetryable("order_lookup", err)
	}
	if paid != nil {
		return s.duplicateOrderEvent(ctx, logger, event, result, paid, userID)
	}

	credits, err := s.resolver.ResolveCreditsForCompletedSession(ctx, session)
	if err != nil {
		logger.Error().Err(err).Str("session_id", session.ID).Msg("❌ Session kredisi çözülemedi")
		return nil, toRetryable("resolve_credits", err)
	}

	reconciled, err := s.reconcile(ctx, &reconcileInput{
		eventID:   event.ID,
		eventType: event.Type,
		session:   session,
		userID:    userID,
		credits:   credits,
	})
	if errors.Is(err, errEventAlreadyRecorded) {
		s.markSeen(ctx, event.ID)
		return s.duplicateEvent(logger, event, result), nil
	}
	if err != nil {
		logger.Error().Err(err).Str("session_id", session.ID).Str("user_id", userID).Msg("❌ Webhook uzlaştırması başarısız, sağlayıcı tekrar gönderecek")
		return nil, toRetryable("reconcile_webhook", err)
	}

	s.markSeen(ctx, event.ID)
	result.ReconcileResult = reconciled
	if reconciled.DuplicateOrder {
		result.Reason = models.ReasonOrderAlreadyPaid
		s.metrics.ObserveWebhook(event.Type, string(models.OutcomeDuplicate))
		logger.Info().Str("session_id", session.ID).Msg("🔁 Sipariş zaten ödenmiş, kredi tekrar verilmedi")
		return result, nil
	}

	s.metrics.ObserveWebhook(event.Type, string(models.OutcomeApplied))
	s.metrics.ObserveMutation(string(models.ReasonPayment), reconciled.CreditsGranted)
	logger.Info().
		Str("session_id", session.ID).
		Str("user_id", userID).
		Int64("credits", reconciled.CreditsGranted).
		Bool("first_purchase", reconciled.FirstPurchase).
		Msg("✅ Ödeme uygulandı")

	return result, nil
}

// ConfirmSession kullanıcının başlattığı doğrulama. Event kaydı yazmaz; sipariş koruması aynıdır.
func (s *ReconciliationService) ConfirmSession(ctx context.Context, userID, sessionID string) (*models.ReconcileResult, error) {
	if sessionID == "" {
		return nil, apperrors.NewValidationError("session_id", sessionID, "session_id zorunlu")
	}

	session, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		return nil, toRetryable("confirm_get_session", err)
	}

	// Başkasının session'ı varlığı sızdırılmadan reddedilir
	if session.UserID() != userID {
		log.Warn().Str("user_id", userID).Str("session_id", sessionID).Msg("⚠️ Session başka kullanıcıya ait")
		return nil, &apperrors.NotFoundError{Resource: "checkout session", ID: sessionID}
	}
	if !session.IsSettled() {
		return nil, &apperrors.PaymentNotSettledError{SessionID: sessionID, PaymentStatus: session.PaymentStatus}
	}

	paid, err := s.paidOrder(ctx, sessionID)
	if err != nil {
		return nil, toRetryable("order_lookup", err)
	}
	if paid != nil {
		return &models.ReconcileResult{
			SessionID:      sessionID,
			UserID:         userID,
			DuplicateOrder: true,
			FirstPurchase:  paid.FirstPurchase,
		}, nil
	}

	credits, err := s.resolver.ResolveCreditsForCompletedSession(ctx, session)
	if err != nil {
		return nil, toRetryable("resolve_credits", err)
	}

	result, err := s.reconcile(ctx, &reconcileInput{
		session: session,
		userID:  userID,
		credits: credits,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Str("user_id", userID).Msg("❌ Session onayı başarısız")
		return nil, toRetryable("reconcile_confirm", err)
	}

	if result.Credited {
		s.metrics.ObserveMutation(string(models.ReasonPayment), result.CreditsGranted)
		log.Info().Str("session_id", sessionID).Str("user_id", userID).Int64("credits", result.CreditsGranted).Msg("✅ Ödeme client onayı ile uygulandı")
	}
	return result, nil
}

// reconcile sipariş kilidi altında krediyi verir; sipariş, bakiye ve event aynı transaction'da yazılır
func (s *ReconciliationService) reconcile(ctx context.Context, in *reconcileInput) (*models.ReconcileResult, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	session := in.session
	var result *models.ReconcileResult

	err := s.store.WithinTx(ctx, func(repos interfaces.Repositories) error {
		result = &models.ReconcileResult{SessionID: session.ID, UserID: in.userID}

		// 1. Sipariş koruması
		if _, err := repos.Orders().CreatePending(ctx, &models.Order{
			SessionID:       session.ID,
			UserID:          in.userID,
			Package:         in.credits.Package,
			PackageCredits:  in.credits.Credits,
			Region:          session.RegionOrDefault(),
			Adjustable:      in.credits.Adjustable,
			BaseUnitCredits: in.credits.BaseUnitCredits,
		}); err != nil {
			return err
		}
		order, err := repos.Orders().GetForUpdate(ctx, session.ID)
		if err != nil {
			return err
		}

		if order.Status == models.OrderPaid {
			result.DuplicateOrder = true
			result.FirstPurchase = order.FirstPurchase
			return s.claimEvent(ctx, repos, in, models.OutcomeDuplicate, models.ReasonOrderAlreadyPaid, false)
		}

		// 2. İlk satın alma mı
		hasPaid, err := repos.Orders().HasPaidOrder(ctx, in.userID, session.ID)
		if err != nil {
			return err
		}
		firstPurchase := !hasPaid

		// 3. Kredi
		source := "webhook"
		if in.eventID == "" {
			source = "confirm"
		}
		meta := models.MutationMeta{
			"pkg":        in.credits.Package,
			"region":     string(session.RegionOrDefault()),
			"session_id": session.ID,
			"source":     source,
		}
		if in.eventID != "" {
			meta["event_id"] = in.eventID
		}
		snapshot, err := s.ledger.ApplyDeltaTx(ctx, repos, in.userID, in.credits.Credits, models.ReasonPayment, meta)
		if err != nil {
			return err
		}

		// 4. Sipariş -> paid
		order.Package = in.credits.Package
		order.PackageCredits = in.credits.Credits
		order.Region = session.RegionOrDefault()
		order.FirstPurchase = firstPurchase
		order.RewardGiven = false
		order.Adjustable = in.credits.Adjustable
		order.BaseUnitCredits = in.credits.BaseUnitCredits
		order.Quantity = in.credits.Quantity
		order.AmountTotal = session.AmountTotal
		order.Currency = session.Currency
		if err := repos.Orders().MarkPaid(ctx, order); err != nil {
			return err
		}

		// 5. Event -> applied
		if err := s.claimEvent(ctx, repos, in, models.OutcomeApplied, "", true); err != nil {
			return err
		}

		result.Credited = true
		result.CreditsGranted = in.credits.Credits
		result.FirstPurchase = firstPurchase
		result.Balance = &snapshot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// claimEvent event kaydını yazar. strict true ise kayıt zaten varsa transaction geri alınır.
func (s *ReconciliationService) claimEvent(ctx context.Context, repos interfaces.Repositories, in *reconcileInput, outcome models.EventOutcome, reason string, strict bool) error {
	if in.eventID == "" {
		return nil
	}
	claimed, err := repos.PaymentEvents().Claim(ctx, &models.PaymentEvent{
		EventID:   in.eventID,
		EventType: in.eventType,
		SessionID: in.session.ID,
		Outcome:   outcome,
		Reason:    reason,
	})
	if err != nil {
		return err
	}
	if !claimed && strict {
		return errEventAlreadyRecorded
	}
	return nil
}

// ignoreEvent event'i ignored olarak kaydeder ve başarı döner
func (s *ReconciliationService) ignoreEvent(ctx context.Context, logger zerolog.Logger, event *models.ProviderEvent, result *models.WebhookResult, reason string) (*models.WebhookResult, error) {
	sessionID := ""
	if event.Session != nil {
		sessionID = event.Session.ID
	}

	claimed, err := s.withTimeout(ctx, func(ctx context.Context) (bool, error) {
		return s.store.PaymentEvents().Claim(ctx, &models.PaymentEvent{
			EventID:   event.ID,
			EventType: event.Type,
			SessionID: sessionID,
			Outcome:   models.OutcomeIgnored,
			Reason:    reason,
		})
	})
	if err != nil {
		logger.Error().Err(err).Msg("❌ Yok sayılan event kaydedilemedi")
		return nil, toRetryable("record_ignored_event", err)
	}
	s.markSeen(ctx, event.ID)
	if !claimed {
		return s.duplicateEvent(logger, event, result), nil
	}

	s.metrics.ObserveWebhook(event.Type, string(models.OutcomeIgnored))
	result.Ignored = true
	result.Reason = reason
	return result, nil
}

// paidOrder kilitsiz okuma; sipariş yoksa veya pending ise nil döner
func (s *ReconciliationService) paidOrder(ctx context.Context, sessionID string) (*models.Order, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.store.Orders().GetBySessionID(ctx, sessionID)
	if apperrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPaid {
		return nil, nil
	}
	return order, nil
}

// duplicateOrderEvent ödenmiş siparişe ait yeni event'i duplicate olarak kaydeder
func (s *ReconciliationService) duplicateOrderEvent(ctx context.Context, logger zerolog.Logger, event *models.ProviderEvent, result *models.WebhookResult, order *models.Order, userID string) (*models.WebhookResult, error) {
	claimed, err := s.withTimeout(ctx, func(ctx context.Context) (bool, error) {
		return s.store.PaymentEvents().Claim(ctx, &models.PaymentEvent{
			EventID:   event.ID,
			EventType: event.Type,
			SessionID: order.SessionID,
			Outcome:   models.OutcomeDuplicate,
			Reason:    models.ReasonOrderAlreadyPaid,
		})
	})
	if err != nil {
		logger.Error().Err(err).Msg("❌ Duplicate event kaydedilemedi")
		return nil, toRetryable("record_duplicate_event", err)
	}
	s.markSeen(ctx, event.ID)
	if !claimed {
		return s.duplicateEvent(logger, event, result), nil
	}

	s.metrics.ObserveWebhook(event.Type, string(models.OutcomeDuplicate))
	logger.Info().Str("session_id", order.SessionID).Msg("🔁 Sipariş zaten ödenmiş, kredi tekrar verilmedi")

	result.Reason = models.ReasonOrderAlreadyPaid
	result.ReconcileResult = &models.ReconcileResult{
		SessionID:      order.SessionID,
		UserID:         userID,
		DuplicateOrder: true,
		FirstPurchase:  order.FirstPurchase,
	}
	return result, nil
}

func (s *ReconciliationService) duplicateEvent(logger zerolog.Logger, event *models.ProviderEvent, result *models.WebhookResult) *models.WebhookResult {
	logger.Info().Msg("🔁 Event daha önce işlendi")
	s.metrics.ObserveWebhook(event.Type, string(models.OutcomeDuplicate))
	result.Duplicate = true
	return result
}

func (s *ReconciliationService) withTimeout(ctx context.Context, fn func(ctx context.Context) (bool, error)) (bool, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

// seen cache hatası akışı durdurmaz; veritabanı her zaman son sözü söyler
func (s *ReconciliationService) seen(ctx context.Context, eventID string) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Seen(ctx, eventID)
	if err != nil {
		log.Warn().Err(err).Str("event_id", eventID).Msg("Seen cache okunamadı")
		return false
	}
	return ok
}

func (s *ReconciliationService) markSeen(ctx context.Context, eventID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.MarkSeen(ctx, eventID); err != nil {
		log.Warn().Err(err).Str("event_id", eventID).Msg("Seen cache yazılamadı")
	}
}

// toRetryable domain hatalarını korur, geri kalanını RetryableError'a sarar
func toRetryable(op string, err error) error {
	if _, ok := apperrors.AsAPIError(err); ok {
		return err
	}
	return &apperrors.RetryableError{Op: op, Err: err}
}
