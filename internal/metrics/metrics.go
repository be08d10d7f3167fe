package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CardRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardapi_requests_total",
		Help: "Total number of /card requests",
	})
	CardRequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cardapi_request_duration_ms",
		Help:    "Card request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	LayerFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cardapi_layer_fetch_total",
		Help: "Total layer source fetches",
	}, []string{"layer_type"})
	LayerFetchFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cardapi_layer_fetch_fail_total",
		Help: "Total layer source fetch failures",
	}, []string{"layer_type"})
	LayerParseFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardapi_layer_parse_fail_total",
		Help: "Total layers whose payload produced no features",
	})
	PlacesRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardapi_places_requests_total",
		Help: "Total places nearby-search REST requests",
	})
	PlacesFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardapi_places_fail_total",
		Help: "Total places nearby-search failures (HTTP or non-OK status)",
	})
	PlacesDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cardapi_places_duration_ms",
		Help:    "Places REST call duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	PlacesDetailsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardapi_places_details_total",
		Help: "Total places detail REST requests",
	})
	PlacesDetailsFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardapi_places_details_fail_total",
		Help: "Total places detail failures",
	})
	PlacesCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardapi_places_cache_hits_total",
		Help: "Total places search cache hits (memory layer)",
	})
	PlacesCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardapi_places_cache_misses_total",
		Help: "Total places search cache misses",
	})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardapi_redis_hits_total",
		Help: "Total redis cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardapi_redis_misses_total",
		Help: "Total redis cache misses",
	})
	ReportQueryTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardapi_report_query_total",
		Help: "Total crowd report store queries",
	})
	ReportQueryDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cardapi_report_query_duration_ms",
		Help:    "Crowd report store query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
)

func init() {
	prometheus.MustRegister(CardRequestsTotal)
	prometheus.MustRegister(CardRequestDurationMs)
	prometheus.MustRegister(LayerFetchTotal)
	prometheus.MustRegister(LayerFetchFailTotal)
	prometheus.MustRegister(LayerParseFailTotal)
	prometheus.MustRegister(PlacesRequestsTotal)
	prometheus.MustRegister(PlacesFailTotal)
	prometheus.MustRegister(PlacesDurationMs)
	prometheus.MustRegister(PlacesDetailsTotal)
	prometheus.MustRegister(PlacesDetailsFailTotal)
	prometheus.MustRegister(PlacesCacheHitsTotal)
	prometheus.MustRegister(PlacesCacheMissesTotal)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(ReportQueryTotal)
	prometheus.MustRegister(ReportQueryDurationMs)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
