package kafka

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig trips the publish breaker once FailureRatio of at least
// MinRequests writes within Interval have failed. While open, publishes fail
// immediately for Timeout.
type BreakerConfig struct {
	Interval     time.Duration `env:"KAFKA_BREAKER_INTERVAL" envDefault:"60s"`
	Timeout      time.Duration `env:"KAFKA_BREAKER_TIMEOUT" envDefault:"30s"`
	FailureRatio float64       `env:"KAFKA_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	MinRequests  uint32        `env:"KAFKA_BREAKER_MIN_REQUESTS" envDefault:"5"`
}

// ErrBreakerOpen is returned by Publish while the breaker is open.
var ErrBreakerOpen = gobreaker.ErrOpenState

var breakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "kafka_producer_breaker_state",
		Help: "Publish circuit breaker state (0=closed, 1=half-open, 2=open).",
	},
	[]string{"name"},
)

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func newBreaker(name string, cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[struct{}] {
	breakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < cfg.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("kafka publish breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}
