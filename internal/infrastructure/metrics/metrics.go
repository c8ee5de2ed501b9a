package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered on the default registry and served by
// promhttp.Handler() at /metrics.
var (
	OTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bff",
		Name:      "otp_requests_total",
		Help:      "Admin passcode requests by result.",
	}, []string{"result"})

	OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bff",
		Name:      "otp_verifications_total",
		Help:      "Admin passcode verifications by result.",
	}, []string{"result"})

	OTPSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bff",
		Name:      "otp_swept_total",
		Help:      "Expired passcodes removed by the sweeper.",
	})

	NotificationsStored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bff",
		Name:      "notifications_stored_total",
		Help:      "Per-recipient notification copies written to the ledger.",
	})

	PushTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bff",
		Name:      "push_tokens_total",
		Help:      "Push attempts per device token by outcome.",
	}, []string{"provider", "outcome"})

	LiveDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bff",
		Name:      "live_deliveries_total",
		Help:      "Messages written to connected realtime clients.",
	})

	LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bff",
		Name:      "live_clients",
		Help:      "Currently connected realtime clients.",
	})
)
