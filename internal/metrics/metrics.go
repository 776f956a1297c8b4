// Package metrics expone las métricas Prometheus del servicio: tráfico HTTP, emisión y
// verificación de tokens, rechazos del rate limiter y estado de las claves.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resultados de emisión (label result).
const (
	IssueOK           = "issued"
	IssueMalformed    = "malformed"
	IssueUnauthorized = "unauthorized"
	IssueNoKey        = "no_signing_key"
	IssueFailed       = "failed"
)

// Metrics agrupa los collectors. Los métodos aceptan receiver nil (no-op).
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpInflight  *prometheus.GaugeVec
	tokensIssued  *prometheus.CounterVec
	verifications *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	keyLoaded     *prometheus.GaugeVec
}

// Register crea y registra los collectors en reg. Es idempotente: si ya estaban
// registrados se reutilizan los existentes.
func Register(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		return nil, errors.New("metrics: nil registry")
	}
	m := &Metrics{gatherer: reg}

	var err error
	if m.httpRequests, err = registerVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})); err != nil {
		return nil, err
	}
	if m.httpDuration, err = registerVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})); err != nil {
		return nil, err
	}
	if m.httpInflight, err = registerVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo por método",
	}, []string{"method"})); err != nil {
		return nil, err
	}
	if m.tokensIssued, err = registerVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apptoken_tokens_issued_total",
		Help: "Intentos de emisión de token por resultado",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if m.verifications, err = registerVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apptoken_token_verifications_total",
		Help: "Verificaciones de token por outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if m.rateLimited, err = registerVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apptoken_rate_limited_total",
		Help: "Requests rechazadas por el rate limiter",
	}, []string{"path"})); err != nil {
		return nil, err
	}
	if m.keyLoaded, err = registerVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "apptoken_key_material_loaded",
		Help: "1 si la clave está cargada, 0 si no",
	}, []string{"key"})); err != nil {
		return nil, err
	}
	return m, nil
}

// registerVec registra c, o devuelve el collector existente si ya estaba registrado.
func registerVec[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// Handler sirve /metrics con el registry propio.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware instrumenta requests (contador, latencia, inflight). El label path es el
// patrón de chi, así los tokens o IDs en la URL no disparan la cardinalidad.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		m.httpInflight.WithLabelValues(method).Inc()
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			m.httpInflight.WithLabelValues(method).Dec()
			path := routePattern(r)
			m.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func (m *Metrics) ObserveIssue(result string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveVerification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRateLimited(path string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(path).Inc()
}

// SetKeyMaterial publica qué claves se cargaron al arrancar.
func (m *Metrics) SetKeyMaterial(hasPrivate, hasPublic bool) {
	if m == nil {
		return
	}
	m.keyLoaded.WithLabelValues("private").Set(boolGauge(hasPrivate))
	m.keyLoaded.WithLabelValues("public").Set(boolGauge(hasPublic))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
