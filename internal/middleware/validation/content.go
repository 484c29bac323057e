// internal/middleware/validation/content.go
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ValidateContent boyut, Content-Type ve JSON geçerliliği
func ValidateContent(r *http.Request, config *Config) error {
	if r.ContentLength > config.MaxBodySize {
		return fmt.Errorf("request body çok büyük. Maksimum boyut: %d bytes", config.MaxBodySize)
	}

	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		return nil
	}

	body, err := readBody(r, config.MaxBodySize)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		if config.AllowEmptyBody {
			return nil
		}
		return fmt.Errorf("JSON body gerekli")
	}

	if err := validateContentType(r, config.ContentTypes); err != nil {
		return err
	}
	if config.JSONValidation && !json.Valid(body) {
		return fmt.Errorf("geçersiz JSON formatı")
	}
	return nil
}

// readBody gövdeyi okur ve handler'lar için geri koyar
func readBody(r *http.Request, maxSize int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("request body okunamadı: %w", err)
	}
	if int64(len(body)) > maxSize {
		return nil, fmt.Errorf("request body çok büyük. Maksimum boyut: %d bytes", maxSize)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func validateContentType(r *http.Request, allowedTypes []string) error {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return fmt.Errorf("Content-Type header gerekli")
	}

	// charset parametresi olabilir
	for _, allowedType := range allowedTypes {
		if strings.HasPrefix(strings.ToLower(contentType), allowedType) {
			return nil
		}
	}
	return fmt.Errorf("desteklenmeyen Content-Type: %s. İzin verilen tipler: %s",
		contentType, strings.Join(allowedTypes, ", "))
}
