package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/config"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// BaseUnitCredits ayarlanabilir checkout'ta bir birimin kredi karşılığı
const BaseUnitCredits int64 = 25

// AdjustablePackage sabit paket seçilmediğinde kullanılan etiket
const AdjustablePackage = "adjustable"

// PriceRef checkout için çözülmüş fiyat
type PriceRef struct {
	PriceID    string
	Package    string
	Credits    int64 // Sabit paketlerde; ayarlanabilirde 0
	Adjustable bool
}

// SessionCredits tamamlanmış session için verilecek kredi
type SessionCredits struct {
	Credits         int64
	Package         string
	Adjustable      bool
	BaseUnitCredits int64
	Quantity        int64
}

// PackageResolver bölge, fiyat ve kredi çözümlemesi
type PackageResolver struct {
	stripe   config.StripeConfig
	checkout config.CheckoutConfig
	provider interfaces.PaymentProvider
}

// NewPackageResolver yeni resolver oluşturur
func NewPackageResolver(stripeCfg config.StripeConfig, checkoutCfg config.CheckoutConfig, provider interfaces.PaymentProvider) *PackageResolver {
	return &PackageResolver{
		stripe:   stripeCfg,
		checkout: checkoutCfg,
		provider: provider,
	}
}

// ResolveRegion sırasıyla: telefon +52, CF-IPCountry, Accept-Language es-MX, DEFAULT_COUNTRY
func (r *PackageResolver) ResolveRegion(signals models.RegionSignals) models.Region {
	if strings.HasPrefix(strings.TrimSpace(signals.PhoneE164), "+52") {
		return models.RegionMX
	}
	if strings.EqualFold(strings.TrimSpace(signals.GeoCountry), "MX") {
		return models.RegionMX
	}
	if strings.Contains(strings.ToLower(signals.AcceptLanguage), "es-mx") {
		return models.RegionMX
	}
	if strings.EqualFold(r.checkout.DefaultCountry, "MX") {
		return models.RegionMX
	}
	return models.RegionINTL
}

// ResolvePriceRef paket seçicisini price id'ye çevirir. Boş seçici ayarlanabilir akıştır.
func (r *PackageResolver) ResolvePriceRef(region models.Region, selector string) (*PriceRef, error) {
	selector = strings.TrimSpace(selector)

	if selector == "" {
		priceID, err := r.priceFor(region, BaseUnitCredits)
		if err != nil {
			return nil, err
		}
		return &PriceRef{PriceID: priceID, Package: AdjustablePackage, Adjustable: true}, nil
	}

	size, err := strconv.ParseInt(selector, 10, 64)
	if err != nil || !isPackageSize(size) {
		return nil, apperrors.NewValidationError("pkg", selector, "bilinmeyen paket: %s", selector)
	}

	priceID, err := r.priceFor(region, size)
	if err != nil {
		return nil, err
	}
	return &PriceRef{PriceID: priceID, Package: selector, Credits: size}, nil
}

func (r *PackageResolver) priceFor(region models.Region, size int64) (string, error) {
	prices := r.stripe.PricesUSD
	currency := "USD"
	if region == models.RegionMX {
		prices = r.stripe.PricesMXN
		currency = "MXN"
	}

	priceID, ok := prices[size]
	if !ok || priceID == "" {
		log.Error().
			Str("region", string(region)).
			Str("currency", currency).
			Int64("package", size).
			Msg("❌ Paket için price id tanımlı değil")
		return "", &apperrors.ConfigurationError{
			Message: fmt.Sprintf("price tanımlı değil: %s %d", currency, size),
			Key:     "price",
			Details: map[string]interface{}{"region": region, "package": size},
		}
	}
	return priceID, nil
}

// ResolveCreditsForCompletedSession ödenen session için kredi miktarını hesaplar.
// Ayarlanabilir session'larda miktar metadata'dan değil sağlayıcının line item'larından okunur.
func (r *PackageResolver) ResolveCreditsForCompletedSession(ctx context.Context, session *models.ProviderSession) (*SessionCredits, error) {
	if session.IsAdjustable() {
		base := BaseUnitCredits
		if raw := session.Metadata["base_unit_credits"]; raw != "" {
			if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
				base = parsed
			}
		}

		full := session
		if !session.LineItemsLoaded {
			fetched, err := r.provider.GetSession(ctx, session.ID)
			if err != nil {
				return nil, err
			}
			full = fetched
		}

		qty := full.LineItemQuantity
		if qty <= 0 {
			qty = 1
		}
		credits := base * qty
		return &SessionCredits{
			Credits:         credits,
			Package:         strconv.FormatInt(credits, 10),
			Adjustable:      true,
			BaseUnitCredits: base,
			Quantity:        qty,
		}, nil
	}

	pkg := session.Metadata["package"]
	if pkg == "" {
		pkg = session.Metadata["package_id"]
	}
	size, err := strconv.ParseInt(pkg, 10, 64)
	if err != nil || !isPackageSize(size) {
		log.Error().
			Str("session_id", session.ID).
			Str("package", pkg).
			Msg("❌ Session paketi çözülemedi")
		return nil, &apperrors.ConfigurationError{
			Message: fmt.Sprintf("session paketi bilinmiyor: %q", pkg),
			Key:     "package",
			Details: map[string]interface{}{"session_id": session.ID},
		}
	}
	return &SessionCredits{Credits: size, Package: pkg, Quantity: 1}, nil
}

func isPackageSize(size int64) bool {
	for _, s := range config.PackageSizes {
		if s == size {
			return true
		}
	}
	return false
}
