package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sessionstore"

// Lookup and save outcomes used as the result label.
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"
	ResultCreated  = "created"
	ResultUpdated  = "updated"
	ResultSkipped  = "skipped"
	ResultOverflow = "overflow"
)

// Collectors groups the store's Prometheus collectors. A nil *Collectors
// records nothing, so callers never have to check whether metrics are on.
type Collectors struct {
	lookups      *prometheus.CounterVec
	saves        *prometheus.CounterVec
	blobBytes    prometheus.Histogram
	corruptBlobs prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Session lookups by session identifier, by result.",
			},
			[]string{"result"},
		),
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saves_total",
				Help:      "Session saves, by result.",
			},
			[]string{"result"},
		),
		blobBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "blob_bytes",
				Help:      "Size of serialized session data written to storage.",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
		),
		corruptBlobs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "corrupt_blobs_total",
				Help:      "Stored session blobs that could not be decoded.",
			},
		),
	}

	for _, collector := range []prometheus.Collector{c.lookups, c.saves, c.blobBytes, c.corruptBlobs} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collectors) ObserveLookup(result string) {
	if c == nil {
		return
	}
	c.lookups.WithLabelValues(result).Inc()
}

func (c *Collectors) ObserveSave(result string) {
	if c == nil {
		return
	}
	c.saves.WithLabelValues(result).Inc()
}

func (c *Collectors) ObserveBlob(size int) {
	if c == nil {
		return
	}
	c.blobBytes.Observe(float64(size))
}

func (c *Collectors) ObserveCorrupt() {
	if c == nil {
		return
	}
	c.corruptBlobs.Inc()
}
