package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
)

// Pinger veritabanı sağlık kontrolü (*sql.DB)
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SystemHandler health ve teşhis endpoint'leri
type SystemHandler struct {
	db       Pinger
	checkout interfaces.CheckoutServiceInterface
}

// NewSystemHandler yeni handler oluşturur
func NewSystemHandler(db Pinger, checkout interfaces.CheckoutServiceInterface) *SystemHandler {
	return &SystemHandler{db: db, checkout: checkout}
}

// Health servis ve veritabanı durumu
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]interface{}{
		"status":    "ok",
		"database":  "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.db.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "unreachable"
	}

	writeJSON(w, status, body)
}

// DiagPayments ödeme yapılandırmasının varlığını gösterir; değerleri asla döndürmez
func (h *SystemHandler) DiagPayments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.checkout.Diagnostics())
}
