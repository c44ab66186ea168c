package event

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidBody marks a log body that cannot be encoded.
	ErrInvalidBody = errors.New("log message must be valid UTF-8")
	// ErrInvalidTitle marks an empty or unencodable alert title.
	ErrInvalidTitle = errors.New("alert title must be a non-empty UTF-8 string")
	// ErrInvalidMetricName marks an empty or unencodable metric name.
	ErrInvalidMetricName = errors.New("metric name must be a non-empty UTF-8 string")
	// ErrInvalidMetricValue marks NaN and infinite values, which JSON cannot carry.
	ErrInvalidMetricValue = errors.New("metric value must be a finite number")
	// ErrInvalidAttributes marks attributes removed by FilterAttributes.
	ErrInvalidAttributes = errors.New("attribute keys must be non-empty and keys and values valid UTF-8")
)

// ValidateBody reports whether a log body can be shipped.
func ValidateBody(body string) error {
	if !utf8.ValidString(body) {
		return ErrInvalidBody
	}
	return nil
}

// ValidateTitle reports whether an alert title can be shipped.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" || !utf8.ValidString(title) {
		return ErrInvalidTitle
	}
	return nil
}

// ValidateMetric reports whether a metric name and value can be shipped.
func ValidateMetric(name string, value float64) error {
	if strings.TrimSpace(name) == "" || !utf8.ValidString(name) {
		return ErrInvalidMetricName
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ErrInvalidMetricValue
	}
	return nil
}

// FilterAttributes returns a copy of attrs without entries whose key is
// empty or whose key or value is not valid UTF-8, plus the sorted list of
// rejected keys. A nil input yields an empty, non-nil map.
func FilterAttributes(attrs map[string]string) (map[string]string, []string) {
	valid := make(map[string]string, len(attrs))
	var rejected []string
	for k, v := range attrs {
		if k == "" || !utf8.ValidString(k) || !utf8.ValidString(v) {
			rejected = append(rejected, k)
			continue
		}
		valid[k] = v
	}
	sort.Strings(rejected)
	return valid, rejected
}
