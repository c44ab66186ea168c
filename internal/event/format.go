package event

import (
	"sort"
	"strings"
)

// Passthrough renders a log for local echo: "[LEVEL] body k=v, k=v".
func (l Log) Passthrough() string {
	line := "[" + string(l.Level) + "] " + l.Body
	if len(l.Attributes) > 0 {
		line += " " + joinAttributes(l.Attributes)
	}
	return line
}

// Passthrough renders an alert for local echo: "[title] k=v, k=v".
func (a Alert) Passthrough() string {
	line := "[" + a.Title + "]"
	if len(a.Attributes) > 0 {
		line += " " + joinAttributes(a.Attributes)
	}
	return line
}

func joinAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(attrs[k])
	}
	return sb.String()
}
