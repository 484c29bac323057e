package errors

// ErrorConfig error handling middleware ayarları
type ErrorConfig struct {
	ShowStackTrace  bool           // Stack trace'i response'da göster mi (sadece development)
	CustomErrorMap  map[int]string // Gövdesiz hata status'ları için mesajlar
	IncludeHeaders  []string       // Panic sonrası korunacak header'lar
	EnablePanicLogs bool
	MaxErrorLength  int
}

// DefaultErrorConfig varsayılan error handling ayarları
func DefaultErrorConfig() *ErrorConfig {
	return &ErrorConfig{
		ShowStackTrace: false,
		CustomErrorMap: map[int]string{
			400: "Geçersiz istek. Lütfen parametrelerinizi kontrol edin.",
			401: "Yetkilendirme gerekli.",
			402: "Yetersiz kredi.",
			404: "Aradığınız kaynak bulunamadı.",
			405: "HTTP metodu bu endpoint için desteklenmiyor.",
			409: "Çakışma. Bu işlem şu anda gerçekleştirilemiyor.",
			429: "Çok fazla istek. Lütfen daha sonra tekrar deneyin.",
			500: "Sunucu hatası.",
			503: "Servis geçici olarak kullanılamıyor.",
		},
		IncludeHeaders:  []string{"X-Request-Id", "X-Ratelimit-Remaining"},
		EnablePanicLogs: true,
		MaxErrorLength:  500,
	}
}

// DevelopmentErrorConfig development ortamı için ayarlar
func DevelopmentErrorConfig() *ErrorConfig {
	config := DefaultErrorConfig()
	config.ShowStackTrace = true
	config.MaxErrorLength = 2000
	return config
}

// ProductionErrorConfig production ortamı için güvenli ayarlar
func ProductionErrorConfig() *ErrorConfig {
	config := DefaultErrorConfig()
	config.ShowStackTrace = false
	config.MaxErrorLength = 200
	return config
}

// MessageFor status için mesaj; tanımsızsa genel mesaj
func (c *ErrorConfig) MessageFor(status int) string {
	if msg, ok := c.CustomErrorMap[status]; ok {
		return msg
	}
	return "İstek işlenemedi."
}
