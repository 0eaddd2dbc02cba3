package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 付费请求
	PaymentRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupsub_payment_requests_total",
			Help: "Payment requests by action (submitted, approved, rejected)",
		},
		[]string{"action"},
	)

	// 订阅状态迁移
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupsub_entitlement_transitions_total",
			Help: "Entitlement transitions by kind",
		},
		[]string{"transition"},
	)

	FeatureChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupsub_feature_changes_total",
			Help: "Feature grant writes by resulting state",
		},
		[]string{"enabled"},
	)

	// 到期巡检
	ExpiryAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupsub_expiry_alerts_total",
			Help: "Expiry alerts emitted by threshold day",
		},
		[]string{"threshold"},
	)

	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupsub_sweeps_total",
			Help: "Expiry sweeps by result",
		},
		[]string{"result"},
	)

	SweepDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "groupsub_sweep_duration_seconds",
			Help:    "Duration of expiry sweeps",
			Buckets: prometheus.DefBuckets,
		},
	)

	SweepGroupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groupsub_sweep_group_failures_total",
			Help: "Groups whose processing failed during a sweep",
		},
	)

	// 通知投递
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupsub_notifications_total",
			Help: "Notifications by result (queued, failed, delivered, dropped)",
		},
		[]string{"result"},
	)
)

// RecordSweep 记录一次巡检
func RecordSweep(result string, elapsed time.Duration) {
	SweepsTotal.WithLabelValues(result).Inc()
	SweepDurationSeconds.Observe(elapsed.Seconds())
}

// RecordAlert 记录一次到期提醒
func RecordAlert(threshold int) {
	ExpiryAlertsTotal.WithLabelValues(strconv.Itoa(threshold)).Inc()
}

func RecordFeatureChange(enabled bool) {
	FeatureChangesTotal.WithLabelValues(strconv.FormatBool(enabled)).Inc()
}
