package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botlens_events_consumed_total",
		Help: "从 Kafka 消费的访问事件总数",
	})

	Detections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botlens_detections_total",
		Help: "按检测方式统计的爬虫识别次数",
	}, []string{"method"})

	DetectionConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "botlens_detection_confidence",
		Help:    "爬虫识别置信度分布",
		Buckets: prometheus.LinearBuckets(0.5, 0.05, 11),
	})

	VisitsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botlens_visits_recorded_total",
		Help: "写入的访问记录数",
	}, []string{"traffic_type"})

	VisitsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botlens_visits_rejected_total",
		Help: "被拒绝的访问事件数",
	}, []string{"reason"})

	DelegateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botlens_delegate_failures_total",
		Help: "外部依赖调用失败次数",
	}, []string{"service"})

	FingerprintUpdateTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "botlens_fingerprint_update_seconds",
		Help:    "指纹聚合耗时",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
	})
)
