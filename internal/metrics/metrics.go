package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	backendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "backend_requests_total",
		Help:      "Requests sent to the attendance backend, by method and status code.",
	}, []string{"method", "code"})

	backendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Name:      "backend_request_duration_seconds",
		Help:      "Latency of requests sent to the attendance backend.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "code"})

	networkPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "network_polls_total",
		Help:      "Network status refreshes, by result.",
	}, []string{"result"})

	trackedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "portal",
		Name:      "network_tracked_clients",
		Help:      "Client addresses currently polled for network status.",
	})

	checkins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "checkins_total",
		Help:      "Confirmed check-in attempts, by outcome.",
	}, []string{"outcome"})

	sessionLogouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "session_logouts_total",
		Help:      "Sessions returned to anonymous, by reason.",
	}, []string{"reason"})
)

// InstrumentTransport wraps rt so every backend call is counted and timed.
func InstrumentTransport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(backendRequests,
		promhttp.InstrumentRoundTripperDuration(backendDuration, rt))
}

// PollResult records the outcome of one network refresh ("ok", "error", "stale").
func PollResult(result string) { networkPolls.WithLabelValues(result).Inc() }

// TrackedClients sets the number of client addresses under polling.
func TrackedClients(n int) { trackedClients.Set(float64(n)) }

// CheckIn records a confirmed check-in outcome ("success", "failure").
func CheckIn(outcome string) { checkins.WithLabelValues(outcome).Inc() }

// Logout records why a session became anonymous ("user", "unauthenticated", "expired").
func Logout(reason string) { sessionLogouts.WithLabelValues(reason).Inc() }

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }
