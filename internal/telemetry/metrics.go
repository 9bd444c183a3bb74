package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "riskwatch"

var (
	// PredictionsTotal — прогнозы по уровням риска.
	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Student predictions produced, by risk level",
	}, []string{"risk"})

	// PipelineDuration — длительность BatchPredict.
	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of one batch prediction",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	// BatchSize — размер пакетов.
	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_batch_size",
		Help:      "Number of records per batch prediction",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	// AttributionFailures — пакеты, для которых атрибуция не построена.
	AttributionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attribution_failures_total",
		Help:      "Feature attribution failures, by reason",
	}, []string{"reason"})

	// UnseenLabels — новые категории, добавленные в энкодеры.
	UnseenLabels = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unseen_labels_total",
		Help:      "Categorical labels unseen at training time, by feature",
	}, []string{"feature"})

	// AdvisorRequests — обращения к генератору рекомендаций.
	AdvisorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "advisor_requests_total",
		Help:      "Recommendation advisor calls, by outcome",
	}, []string{"outcome"})

	// JobsTotal — завершённые scoring jobs.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Scoring jobs finished, by status",
	}, []string{"status"})

	// SchedulerJobsCreated — jobs, созданные планировщиком.
	SchedulerJobsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduler_jobs_created_total",
		Help:      "Scoring jobs created from rescore schedules",
	})

	// MQMessages — обработанные сообщения по очереди и исходу (ack, requeue, dead_letter).
	MQMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mq_messages_total",
		Help:      "Consumed RabbitMQ messages, by queue and outcome",
	}, []string{"queue", "outcome"})

	// MQReconnects — переподключения к RabbitMQ.
	MQReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mq_reconnects_total",
		Help:      "RabbitMQ reconnects, by connection name",
	}, []string{"connection"})

	// HTTPRequests — HTTP запросы API.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests handled by the API",
	}, []string{"method", "route", "status"})

	// HTTPDuration — длительность HTTP запросов.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
