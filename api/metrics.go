package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const metricsKey = "request.metrics"

type requestMetrics struct {
	logger          *log.Logger
	start           time.Time
	authDuration    time.Duration
	serviceDuration time.Duration
	renderDuration  time.Duration
	anonymous       bool
	outcome         string
}

func newRequestMetrics(logger *log.Logger) *requestMetrics {
	return &requestMetrics{
		logger: logger,
		start:  time.Now(),
	}
}

func (m *requestMetrics) ObserveAuth(duration time.Duration) {
	if m == nil || duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *requestMetrics) ObserveService(duration time.Duration) {
	if m == nil || duration <= 0 {
		return
	}
	m.serviceDuration = duration
}

func (m *requestMetrics) ObserveRender(duration time.Duration) {
	if m == nil || duration <= 0 {
		return
	}
	m.renderDuration = duration
}

func (m *requestMetrics) SetAnonymous(anonymous bool) {
	if m == nil {
		return
	}
	m.anonymous = anonymous
}

func (m *requestMetrics) SetOutcome(tag string) {
	if m == nil || tag == "" {
		return
	}
	m.outcome = tag
}

func (m *requestMetrics) Log(route string, status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"route":     route,
		"status":    status,
		"total_ms":  durationToMillis(time.Since(m.start)),
		"anonymous": m.anonymous,
	}

	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.serviceDuration > 0 {
		fields["service_ms"] = durationToMillis(m.serviceDuration)
	}
	if m.renderDuration > 0 {
		fields["render_ms"] = durationToMillis(m.renderDuration)
	}
	if m.outcome != "" {
		fields["outcome"] = m.outcome
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("http.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

func metricsFrom(c echo.Context) *requestMetrics {
	m, _ := c.Get(metricsKey).(*requestMetrics)
	return m
}

// RequestMetrics logs one http.request.metrics line per request.
func RequestMetrics(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			m := newRequestMetrics(logger)
			c.Set(metricsKey, m)
			defer func() {
				status := c.Response().Status
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
				m.Log(c.Path(), status, err)
			}()
			return next(c)
		}
	}
}
