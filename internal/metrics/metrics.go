package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"net/http"
	"sync"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	TransitionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_transitions_total",
			Help: "Status transitions by outcome (applied, rolled_back, stale, invalid).",
		},
		[]string{"outcome"},
	)
	BulkActionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_bulk_items_total",
			Help: "Bulk action items by action and outcome.",
		},
		[]string{"action", "outcome"},
	)
	LoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_load_duration_seconds",
			Help:    "Duration of proposal loads in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
	MessagesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_messages_sent_total",
			Help: "Messages sent by outcome.",
		},
		[]string{"outcome"},
	)
	LiveEventsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Live-update events received by kind.",
		},
		[]string{"kind"},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ErrorsCounter)
		prometheus.MustRegister(TransitionsCounter)
		prometheus.MustRegister(BulkActionsCounter)
		prometheus.MustRegister(LoadDuration)
		prometheus.MustRegister(MessagesCounter)
		prometheus.MustRegister(LiveEventsCounter)
	})
}

func StartMetricsServer(addr string) {
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(addr, mux))
	}()
}
