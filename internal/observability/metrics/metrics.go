package metrics

import "github.com/prometheus/client_golang/prometheus"

// RecordMetrics counts gateway writes per table.
type RecordMetrics struct {
	createdTotal  *prometheus.CounterVec
	statusTotal   *prometheus.CounterVec
	deletedTotal  *prometheus.CounterVec
	backendErrors *prometheus.CounterVec
}

func NewRecordMetrics(reg prometheus.Registerer) *RecordMetrics {
	m := &RecordMetrics{
		createdTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "records",
			Name:      "create_total",
			Help:      "Create attempts by table and outcome (created, rejected, failed)",
		}, []string{"table", "outcome"}),
		statusTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "records",
			Name:      "status_change_total",
			Help:      "Status mutations by table and target status",
		}, []string{"table", "status"}),
		deletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "records",
			Name:      "deleted_total",
			Help:      "Deleted records by table",
		}, []string{"table"}),
		backendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "records",
			Name:      "backend_errors_total",
			Help:      "Backend call failures by operation",
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.createdTotal, m.statusTotal, m.deletedTotal, m.backendErrors)
	return m
}

func (m *RecordMetrics) ObserveCreate(table, outcome string) {
	if m == nil {
		return
	}
	m.createdTotal.WithLabelValues(table, outcome).Inc()
}

func (m *RecordMetrics) ObserveStatusChange(table, status string) {
	if m == nil {
		return
	}
	m.statusTotal.WithLabelValues(table, status).Inc()
}

func (m *RecordMetrics) ObserveDelete(table string) {
	if m == nil {
		return
	}
	m.deletedTotal.WithLabelValues(table).Inc()
}

func (m *RecordMetrics) ObserveBackendError(op string) {
	if m == nil {
		return
	}
	m.backendErrors.WithLabelValues(op).Inc()
}

// NotifyMetrics counts alert deliveries per sink.
type NotifyMetrics struct {
	deliveries *prometheus.CounterVec
	buffered   prometheus.Gauge
	latency    *prometheus.HistogramVec
}

func NewNotifyMetrics(reg prometheus.Registerer) *NotifyMetrics {
	m := &NotifyMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Alert deliveries by sink and result",
		}, []string{"sink", "result"}),
		buffered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "buffered_notifications",
			Help:      "Notifications currently retained in the admin buffer",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "sink_latency_seconds",
			Help:      "Time spent delivering one alert to a sink",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.deliveries, m.buffered, m.latency)
	return m
}

func (m *NotifyMetrics) ObserveDelivery(sink string, err error, seconds float64) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.deliveries.WithLabelValues(sink, result).Inc()
	m.latency.WithLabelValues(sink).Observe(seconds)
}

func (m *NotifyMetrics) SetBuffered(n int) {
	if m == nil {
		return
	}
	m.buffered.Set(float64(n))
}

// BoardMetrics tracks how the admin board merges its two producers.
type BoardMetrics struct {
	refreshes *prometheus.CounterVec
	events    *prometheus.CounterVec
}

func NewBoardMetrics(reg prometheus.Registerer) *BoardMetrics {
	m := &BoardMetrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "board",
			Name:      "refresh_total",
			Help:      "Board fetches by outcome (applied, stale, failed)",
		}, []string{"outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "board",
			Name:      "change_events_total",
			Help:      "Change events applied to the board by type",
		}, []string{"type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.refreshes, m.events)
	return m
}

func (m *BoardMetrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *BoardMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}
