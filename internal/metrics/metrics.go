package metrics

import (
	"sync"

	"fsaeinventory/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fsae_inventory"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Inventory mutations by event type and whether the snapshot was saved.",
		},
		[]string{"event", "saved"},
	)

	persistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed writes of the inventory snapshot to the remote store.",
		},
	)

	loads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Inventory loads by source.",
		},
		[]string{"source"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, mutations, persistFailures, loads)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncPersistFailure() {
	persistFailures.Inc()
}

func IncLoad(source string) {
	loads.WithLabelValues(source).Inc()
}

// HandleEvent counts inventory events; it is registered on the event bus.
func HandleEvent(event *events.Event) error {
	var payload events.ItemEventPayload
	if err := event.Decode(&payload); err != nil {
		return err
	}
	saved := "false"
	if payload.Saved {
		saved = "true"
	}
	mutations.WithLabelValues(event.Type, saved).Inc()
	return nil
}
