package http

import (
	"github.com/zeni-bff/internal/application/adminauth"
	"github.com/zeni-bff/internal/application/delivery"
	"github.com/zeni-bff/internal/application/notification"
	"github.com/zeni-bff/internal/application/realtime"
	"github.com/zeni-bff/internal/pkg/clock"
	appmiddleware "github.com/zeni-bff/internal/transport/http/middleware"
)

// Deps holds the application services the router exposes.
type Deps struct {
	AdminAuth adminauth.Service
	Ledger    notification.Service
	Delivery  delivery.Service
	Live      *realtime.Registry
	Tokens appmiddleware.TokenVerifier
	Clock  clock.Clocker
}
