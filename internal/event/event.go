package event

import "time"

// Level is the severity attached to a log.
type Level string

const (
	LevelError Level = "ERROR"
	LevelWarn  Level = "WARN"
	LevelInfo  Level = "INFO"
	LevelDebug Level = "DEBUG"
	LevelTrace Level = "TRACE"
)

// Log is a single structured log line as shipped to the collector.
type Log struct {
	Timestamp  string            `json:"timestamp"`
	Body       string            `json:"body"`
	Level      Level             `json:"level"`
	Attributes map[string]string `json:"attributes"`
}

// Alert is a titled notification. The collector de-duplicates alerts on Title.
type Alert struct {
	Timestamp  string            `json:"timestamp"`
	Title      string            `json:"title"`
	Attributes map[string]string `json:"attributes"`
}

// Kind discriminates the three raw metric event types.
type Kind string

const (
	KindCounter   Kind = "counter"
	KindGauge     Kind = "gauge"
	KindHistogram Kind = "histogram"
)

// Metric is a raw counter, gauge or histogram observation. Time is the
// creation instant and selects the aggregation bucket; it is never sent.
type Metric struct {
	Kind  Kind
	Name  string
	Value float64
	Tags  map[string]string
	Time  time.Time
}

const (
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
	bucketLayout    = "2006-01-02T15:04:05.000Z"
)

// Now returns the current UTC time with nanosecond precision.
func Now() string {
	return FormatTimestamp(time.Now())
}

// FormatTimestamp renders t in UTC with a fixed nine digit fraction.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// FormatBucket renders a bucket start with millisecond precision.
func FormatBucket(t time.Time) string {
	return t.UTC().Format(bucketLayout)
}

// NewLog builds a log stamped with the current time. Attributes are copied.
func NewLog(level Level, body string, attrs map[string]string) Log {
	return Log{
		Timestamp:  Now(),
		Body:       body,
		Level:      level,
		Attributes: copyMap(attrs),
	}
}

// NewAlert builds an alert stamped with the current time. Attributes are copied.
func NewAlert(title string, attrs map[string]string) Alert {
	return Alert{
		Timestamp:  Now(),
		Title:      title,
		Attributes: copyMap(attrs),
	}
}

// NewMetric builds a raw metric observation stamped with the current time.
func NewMetric(kind Kind, name string, value float64, tags map[string]string) Metric {
	return Metric{
		Kind:  kind,
		Name:  name,
		Value: value,
		Tags:  copyMap(tags),
		Time:  time.Now(),
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
