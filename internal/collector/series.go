package collector

import (
	"sort"
	"strings"
	"time"

	"github.com/vigilant-run/vigilant-go/internal/event"
)

// CounterMessage is the aggregated sum of a counter series over one bucket.
type CounterMessage struct {
	Timestamp  string            `json:"timestamp"`
	MetricName string            `json:"metric_name"`
	Value      float64           `json:"value"`
	Tags       map[string]string `json:"tags"`
}

// GaugeMessage is the last known value of a gauge series at one bucket.
type GaugeMessage struct {
	Timestamp  string            `json:"timestamp"`
	MetricName string            `json:"metric_name"`
	Value      float64           `json:"value"`
	Tags       map[string]string `json:"tags"`
}

// HistogramMessage carries every raw observation of a series in one bucket.
// Percentiles are computed by the collector service.
type HistogramMessage struct {
	Timestamp  string            `json:"timestamp"`
	MetricName string            `json:"metric_name"`
	Values     []float64         `json:"values"`
	Tags       map[string]string `json:"tags"`
}

// Aggregated is the snapshot produced when a bucket is finalized.
type Aggregated struct {
	Counters   []CounterMessage
	Gauges     []GaugeMessage
	Histograms []HistogramMessage
}

// Empty reports whether the snapshot carries nothing worth sending.
func (a Aggregated) Empty() bool {
	return len(a.Counters) == 0 && len(a.Gauges) == 0 && len(a.Histograms) == 0
}

// series accumulates one (name, tag set) identity.
type series struct {
	name   string
	tags   map[string]string
	value  float64
	values []float64
}

// bucket owns the series of one aggregation interval.
type bucket struct {
	start      time.Time
	counters   map[string]*series
	gauges     map[string]*series
	histograms map[string]*series
}

func newBucket(start time.Time) *bucket {
	return &bucket{
		start:      start,
		counters:   make(map[string]*series),
		gauges:     make(map[string]*series),
		histograms: make(map[string]*series),
	}
}

// record folds a raw observation into the bucket.
func (b *bucket) record(m event.Metric) {
	key := identity(m.Name, m.Tags)
	switch m.Kind {
	case event.KindCounter:
		s := b.counters[key]
		if s == nil {
			s = &series{name: m.Name, tags: copyTags(m.Tags)}
			b.counters[key] = s
		}
		s.value += m.Value
	case event.KindGauge:
		s := b.gauges[key]
		if s == nil {
			s = &series{name: m.Name, tags: copyTags(m.Tags)}
			b.gauges[key] = s
		}
		s.value = m.Value
	case event.KindHistogram:
		s := b.histograms[key]
		if s == nil {
			s = &series{name: m.Name, tags: copyTags(m.Tags)}
			b.histograms[key] = s
		}
		s.values = append(s.values, m.Value)
	}
}

// identity keys a series by name and its tags sorted by key, so the same
// tag set always maps to the same series regardless of insertion order.
func identity(name string, tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		sb.WriteByte(0)
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(tags[k])
	}
	return sb.String()
}

func sortedKeys(m map[string]*series) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
