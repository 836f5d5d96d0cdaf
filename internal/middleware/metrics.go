package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis command failures by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "haven_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// AccessRequestDecisions counts decided access requests by outcome.
	// No-op repeats of an already-decided request are not counted.
	AccessRequestDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "haven_access_request_decisions_total",
		Help: "Total number of access request decisions by outcome",
	}, []string{"outcome"})

	// NotificationsSent counts outbox deliveries by result.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "haven_notifications_total",
		Help: "Total number of outbox notification deliveries by result",
	}, []string{"result"})
)

// InitMetrics creates the Prometheus middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the Fiber handler that records HTTP metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
