package entities

import "time"

// ErrorResponse is the wire shape of every error returned by the API
type ErrorResponse struct {
	Status      int               `json:"status"`
	Message     string            `json:"message"`
	Timestamp   time.Time         `json:"timestamp"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}
