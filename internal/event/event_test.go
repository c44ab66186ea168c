package event

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 120, time.FixedZone("X", 3600))
	if got, want := FormatTimestamp(ts), "2024-03-05T06:08:09.000000120Z"; got != want {
		t.Errorf("FormatTimestamp = %q, want %q", got, want)
	}
	if got, want := FormatBucket(ts), "2024-03-05T06:08:09.000Z"; got != want {
		t.Errorf("FormatBucket = %q, want %q", got, want)
	}
}

func TestNewLogCopiesAttributes(t *testing.T) {
	attrs := map[string]string{"user": "42"}
	l := NewLog(LevelInfo, "hello", attrs)
	attrs["user"] = "changed"

	if l.Attributes["user"] != "42" {
		t.Errorf("log shares the caller's map")
	}
	if _, err := time.Parse(timestampLayout, l.Timestamp); err != nil {
		t.Errorf("timestamp %q does not parse: %v", l.Timestamp, err)
	}
}

func TestNewAlertNilAttributes(t *testing.T) {
	a := NewAlert("disk full", nil)
	if a.Attributes == nil {
		t.Fatal("attributes should never be nil")
	}
}

func TestValidate(t *testing.T) {
	invalid := string([]byte{0xff, 0xfe})

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"body ok", ValidateBody("hello"), nil},
		{"empty body ok", ValidateBody(""), nil},
		{"body invalid utf8", ValidateBody(invalid), ErrInvalidBody},
		{"title ok", ValidateTitle("disk full"), nil},
		{"title blank", ValidateTitle("  "), ErrInvalidTitle},
		{"metric ok", ValidateMetric("requests", 1), nil},
		{"metric no name", ValidateMetric("", 1), ErrInvalidMetricName},
		{"metric nan", ValidateMetric("requests", math.NaN()), ErrInvalidMetricValue},
		{"metric inf", ValidateMetric("requests", math.Inf(-1)), ErrInvalidMetricValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) && tt.err != tt.want {
				t.Errorf("got %v, want %v", tt.err, tt.want)
			}
		})
	}
}

func TestFilterAttributes(t *testing.T) {
	invalid := string([]byte{0xff})
	valid, rejected := FilterAttributes(map[string]string{
		"ok":   "1",
		"":     "empty key",
		"bad":  invalid,
		"also": "2",
	})

	if want := map[string]string{"ok": "1", "also": "2"}; !reflect.DeepEqual(valid, want) {
		t.Errorf("valid = %v, want %v", valid, want)
	}
	if want := []string{"", "bad"}; !reflect.DeepEqual(rejected, want) {
		t.Errorf("rejected = %v, want %v", rejected, want)
	}

	valid, rejected = FilterAttributes(nil)
	if valid == nil || len(valid) != 0 || rejected != nil {
		t.Errorf("nil input: valid=%v rejected=%v", valid, rejected)
	}
}

func TestPassthrough(t *testing.T) {
	l := Log{Level: LevelWarn, Body: "slow query", Attributes: map[string]string{"b": "2", "a": "1"}}
	if got, want := l.Passthrough(), "[WARN] slow query a=1, b=2"; got != want {
		t.Errorf("log passthrough = %q, want %q", got, want)
	}

	bare := Log{Level: LevelInfo, Body: "started"}
	if got, want := bare.Passthrough(), "[INFO] started"; got != want {
		t.Errorf("log passthrough = %q, want %q", got, want)
	}

	a := Alert{Title: "disk full", Attributes: map[string]string{"host": "db1"}}
	if got, want := a.Passthrough(), "[disk full] host=db1"; got != want {
		t.Errorf("alert passthrough = %q, want %q", got, want)
	}
}
