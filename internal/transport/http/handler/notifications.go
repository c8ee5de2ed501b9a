package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zeni-bff/internal/application/notification"
	"github.com/zeni-bff/internal/domain"
)

// NotificationHandler serves device registration and the per-user inbox.
type NotificationHandler struct {
	svc   notification.Service
	debug bool
}

func NewNotificationHandler(svc notification.Service, debug bool) *NotificationHandler {
	return &NotificationHandler{svc: svc, debug: debug}
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	devices, err := h.svc.RegisterDevice(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrBadRequest) {
			writeError(w, http.StatusBadRequest, "userId and token are required")
			return
		}
		httpError(w, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, DevicesEnvelope{Success: true, Message: "Device registered", Devices: devices})
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := notification.ListOptions{
		UnreadOnly: r.URL.Query().Get("unreadOnly") == "true",
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	items, err := h.svc.List(r.Context(), chi.URLParam(r, "userId"), opts)
	if err != nil {
		httpError(w, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope{Success: true, Data: items})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadCount(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		httpError(w, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Success: true, Count: n})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllRead(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		httpError(w, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, UpdatedEnvelope{Success: true, Updated: n})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkRead(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "notificationId"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Notification not found")
			return
		}
		httpError(w, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope{Success: true, Data: n})
}
