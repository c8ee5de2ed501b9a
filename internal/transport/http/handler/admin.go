package handler

import (
	"errors"
	"net/http"

	"github.com/zeni-bff/internal/application/adminauth"
	"github.com/zeni-bff/internal/application/delivery"
	"github.com/zeni-bff/internal/domain"
)

// AdminHandler serves the admin sign-in and broadcast endpoints.
type AdminHandler struct {
	auth     adminauth.Service
	delivery delivery.Service
	debug    bool
}

func NewAdminHandler(auth adminauth.Service, delivery delivery.Service, debug bool) *AdminHandler {
	return &AdminHandler{auth: auth, delivery: delivery, debug: debug}
}

func (h *AdminHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req adminauth.SendOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	masked, err := h.auth.RequestOTP(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, OTPSentEnvelope{
			Success:     true,
			Message:     "OTP sent successfully",
			EmailMasked: masked,
		})
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "Email is required")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, domain.ErrDelivery):
		writeError(w, http.StatusInternalServerError, "Failed to send OTP")
	default:
		httpError(w, err, h.debug)
	}
}

func (h *AdminHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req adminauth.VerifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.auth.VerifyOTP(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, TokenEnvelope{
			Success:   true,
			Message:   "OTP verified successfully",
			Token:     sess.Token,
			ExpiresIn: sess.ExpiresIn,
			ExpiresAt: sess.ExpiresAt,
		})
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "Email and OTP are required")
	case errors.Is(err, domain.ErrInvalidOrExpired):
		writeError(w, http.StatusBadRequest, "Invalid or expired OTP")
	default:
		httpError(w, err, h.debug)
	}
}

func (h *AdminHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req delivery.SendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.delivery.Send(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrBadRequest) {
			writeError(w, http.StatusBadRequest, "Title and body are required")
			return
		}
		httpError(w, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, DetailsEnvelope{
		Success: true,
		Message: "Notification sent successfully",
		Details: res,
	})
}

func (h *AdminHandler) TestPush(w http.ResponseWriter, r *http.Request) {
	var req delivery.TestPushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.delivery.SendTestPush(r.Context(), req)
	if err != nil {
		httpError(w, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, DetailsEnvelope{
		Success: true,
		Message: "Test push request sent",
		Details: res,
	})
}

func (h *AdminHandler) OTPStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, DataEnvelope{Success: true, Data: h.auth.Stats()})
}
