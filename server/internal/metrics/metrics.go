package metrics

import (
	"bytes"
	"log/slog"
	"net/http"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/quickbite/quickbite/pkg/types"
)

// Exposed metric names.
const (
	EventsPublished = "quickbite_events_published_total"
	EventsDelivered = "quickbite_events_delivered_total"
	EventsRejected  = "quickbite_events_rejected_total"
	SendFailures    = "quickbite_send_failures_total"
	Rooms           = "quickbite_rooms"
	Connections     = "quickbite_connections"
)

var kinds = []types.EventKind{types.KindOrderPlaced, types.KindStatusChanged}

// Collector counts hub activity and renders it in the Prometheus text
// format. It satisfies hub.Recorder.
type Collector struct {
	mu           sync.Mutex
	published    map[types.EventKind]uint64
	delivered    map[types.EventKind]uint64
	rejected     map[types.EventKind]uint64
	sendFailures uint64

	// gauges is sampled on every scrape.
	gauges func() (rooms, connections int)
}

// New creates a Collector. gauges may be nil.
func New(gauges func() (rooms, connections int)) *Collector {
	return &Collector{
		published: make(map[types.EventKind]uint64),
		delivered: make(map[types.EventKind]uint64),
		rejected:  make(map[types.EventKind]uint64),
		gauges:    gauges,
	}
}

// Published records one emitted event and the number of connections it
// reached.
func (c *Collector) Published(kind types.EventKind, delivered int) {
	c.mu.Lock()
	c.published[kind]++
	c.delivered[kind] += uint64(delivered)
	c.mu.Unlock()
}

// Rejected records a malformed publish.
func (c *Collector) Rejected(kind types.EventKind) {
	c.mu.Lock()
	c.rejected[kind]++
	c.mu.Unlock()
}

// SendFailed records a delivery that tore down its connection.
func (c *Collector) SendFailed() {
	c.mu.Lock()
	c.sendFailures++
	c.mu.Unlock()
}

// Families returns the current metric families in exposition order.
func (c *Collector) Families() []*dto.MetricFamily {
	c.mu.Lock()
	out := []*dto.MetricFamily{
		byKind(EventsPublished, "Events emitted by the hub.", c.published),
		byKind(EventsDelivered, "Event deliveries to room members.", c.delivered),
		byKind(EventsRejected, "Publishes rejected as malformed.", c.rejected),
		counter(SendFailures, "Deliveries that failed and dropped the connection.", float64(c.sendFailures)),
	}
	c.mu.Unlock()

	var rooms, conns int
	if c.gauges != nil {
		rooms, conns = c.gauges()
	}
	out = append(out,
		gauge(Rooms, "Rooms with at least one member.", float64(rooms)),
		gauge(Connections, "Connections holding at least one room membership.", float64(conns)),
	)
	return out
}

// ServeHTTP writes the text exposition.
func (c *Collector) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	for _, mf := range c.Families() {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			slog.Error("metrics: encode family", "name", mf.GetName(), "err", err)
			http.Error(w, "encode metrics", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	w.Write(buf.Bytes()) //nolint:errcheck
}

func byKind(name, help string, values map[types.EventKind]uint64) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: ptr(name),
		Help: ptr(help),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, k := range kinds {
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: ptr("kind"), Value: ptr(string(k))}},
			Counter: &dto.Counter{Value: ptr(float64(values[k]))},
		})
	}
	return mf
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: ptr(v)}}},
	}
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: ptr(v)}}},
	}
}

func ptr[T any](v T) *T { return &v }
