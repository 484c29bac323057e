package errors

import "time"

// PanicInfo panic durumu hakkında bilgi
type PanicInfo struct {
	Value     interface{}
	Stack     string
	RequestID string
	Method    string
	Path      string
	UserAgent string
	ClientIP  string
	Timestamp time.Time
}
