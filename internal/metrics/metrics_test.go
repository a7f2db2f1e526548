package metrics

import (
	"testing"

	"fsaeinventory/internal/events"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncPersistFailure()
		IncLoad("sample")
	})
}

func TestHandleEvent(t *testing.T) {
	bus := events.NewEventBus()
	bus.SubscribeAll(HandleEvent)

	before := testutil.ToFloat64(mutations.WithLabelValues(events.EventItemWithdrawn, "true"))
	require.NoError(t, bus.PublishJSON(events.EventItemWithdrawn, events.ItemEventPayload{ItemID: 1, Saved: true}))
	after := testutil.ToFloat64(mutations.WithLabelValues(events.EventItemWithdrawn, "true"))

	assert.Equal(t, before+1, after)
}

func TestHandleEvent_BadPayload(t *testing.T) {
	assert.Error(t, HandleEvent(&events.Event{Type: events.EventItemAdded, Payload: []byte("nope")}))
}
