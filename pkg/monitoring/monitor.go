package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// QuizSubmissions mode: manual | kiosk | kiosk_auto
	QuizSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Total number of quiz submissions",
		},
		[]string{"mode"},
	)

	KioskEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiosk_events_total",
			Help: "Kiosk lock-down events reported by clients",
		},
		[]string{"type"},
	)

	KioskOnlineClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kiosk_online_clients",
			Help: "Websocket clients connected to this instance",
		},
	)

	AIGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_generations_total",
			Help: "AI generation requests",
		},
		[]string{"kind", "status"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(QuizSubmissions)
		prometheus.MustRegister(KioskEvents)
		prometheus.MustRegister(KioskOnlineClients)
		prometheus.MustRegister(AIGenerations)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
