// Package metrics 提供 Prometheus 指标集合：缓存命中、数据库查询耗时、重试次数、HTTP 请求
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// 缓存查找计数，label: purpose, result(hit/miss)
	CacheLookups *prometheus.CounterVec
	// 数据库查询计数，label: query, status(ok/error)
	DBQueries *prometheus.CounterVec
	// 数据库查询耗时
	DBQueryDuration *prometheus.HistogramVec
	// 数据库读取重试次数
	DBRetries *prometheus.CounterVec
	// HTTP 请求计数，label: route, code
	HTTPRequests *prometheus.CounterVec
}

// New 创建指标实例并注册到独立的 registry
func New(serviceName string) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "collector",
			Name:        "cache_lookups_total",
			Help:        "Query result cache lookups by purpose and result",
			ConstLabels: constLabels,
		}, []string{"purpose", "result"}),
		DBQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "collector",
			Name:        "db_queries_total",
			Help:        "Database read queries by query name and status",
			ConstLabels: constLabels,
		}, []string{"query", "status"}),
		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "collector",
			Name:        "db_query_duration_seconds",
			Help:        "Database read query duration in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"query"}),
		DBRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "collector",
			Name:        "db_retries_total",
			Help:        "Database read attempts that failed and were retried",
			ConstLabels: constLabels,
		}, []string{"query"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "collector",
			Name:        "http_requests_total",
			Help:        "HTTP requests by route and status code",
			ConstLabels: constLabels,
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.CacheLookups,
		m.DBQueries,
		m.DBQueryDuration,
		m.DBRetries,
		m.HTTPRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler 返回 /metrics 的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCache 记录一次缓存查找，m 为 nil 时忽略
func (m *Metrics) ObserveCache(purpose string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(purpose, result).Inc()
}

// ObserveQuery 记录一次数据库查询
func (m *Metrics) ObserveQuery(query string, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.DBQueries.WithLabelValues(query, status).Inc()
	m.DBQueryDuration.WithLabelValues(query).Observe(seconds)
}

// ObserveRetry 记录一次重试
func (m *Metrics) ObserveRetry(query string) {
	if m == nil {
		return
	}
	m.DBRetries.WithLabelValues(query).Inc()
}
