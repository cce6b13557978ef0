package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OrdersProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analytics_orders_processed_total",
		Help: "Orders read from the stream and scored successfully",
	})
	OrdersFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analytics_orders_failed_total",
		Help: "Orders that failed to parse, score, or persist",
	})
	OrdersPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analytics_orders_published_total",
		Help: "Orders published onto the order stream",
	})
	PublishFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analytics_orders_publish_failed_total",
		Help: "Order publications that failed",
	})
	Verdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_verdicts_total",
		Help: "Risk verdicts by outcome",
	}, []string{"verdict"})
	ProcessingTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analytics_processing_time_seconds",
		Help:    "Per-order risk analysis duration",
		Buckets: prometheus.DefBuckets,
	})
	CurrentPrice = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "analytics_current_price",
		Help: "Latest simulated feed price",
	})
	CurrentVolatility = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "analytics_current_volatility",
		Help: "Latest annualized realized volatility",
	})
)

func init() {
	prometheus.MustRegister(
		OrdersProcessed,
		OrdersFailed,
		OrdersPublished,
		PublishFailed,
		Verdicts,
		ProcessingTime,
		CurrentPrice,
		CurrentVolatility,
	)
}
