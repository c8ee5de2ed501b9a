package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/zeni-bff/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OTPSentEnvelope answers send-otp.
type OTPSentEnvelope struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	EmailMasked string `json:"emailMasked"`
}

// TokenEnvelope answers verify-otp.
type TokenEnvelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresIn string    `json:"expiresIn"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DetailsEnvelope wraps the outcome of an admin send.
type DetailsEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

// DataEnvelope wraps a read result.
type DataEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// DevicesEnvelope answers register-device with the user's current devices.
type DevicesEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Devices []domain.Device `json:"devices"`
}

type CountEnvelope struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

type UpdatedEnvelope struct {
	Success bool `json:"success"`
	Updated int  `json:"updated"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Message: msg})
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}
