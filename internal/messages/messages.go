// Package messages renders the human-facing warning and usage banners.
package messages

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorColor = lipgloss.Color("#FF8480")
	usageColor = lipgloss.Color("#81FF80")
)

const exampleInit = `vigilant.Init(config.Config{
	Name:  "backend",
	Token: "your-token-here",
})`

const tokenHelp = "Generate a token by visiting: https://dashboard.vigilant.run/settings/project/api"

// Message is an explanation plus an optional example of correct usage.
type Message struct {
	Text    string
	Example string
}

var (
	ConfigInvalid = Message{
		Text: "The configuration is invalid.\n" +
			"Use config.NewBuilder() to create a valid configuration.\n" + tokenHelp,
		Example: exampleInit,
	}
	NameRequired = Message{
		Text: "You cannot use an empty name when initializing Vigilant.\n" +
			"Use the name of your application or service, e.g. 'backend', 'api', etc.",
		Example: exampleInit,
	}
	TokenRequired = Message{
		Text: "You cannot have an empty token when initializing Vigilant.\n" +
			"Use WithToken() on the builder to set a token.\n" + tokenHelp,
		Example: exampleInit,
	}
	NotInitialized = Message{
		Text:    "Vigilant has not been initialized.\nCall vigilant.Init() before emitting events.",
		Example: exampleInit,
	}
	InvalidToken = Message{
		Text: "The token you have provided is invalid.\n" + tokenHelp + "\n" +
			"If the issue persists, please contact support@vigilant.run",
		Example: exampleInit,
	}
	ServerError = Message{
		Text: "The server is experiencing issues.\nPlease contact support@vigilant.run",
	}
	InvalidAttributes = Message{
		Text:    "Some attributes are invalid and were dropped.\nKeys must be non-empty and keys and values must be valid UTF-8.",
		Example: `vigilant.LogInfo(ctx, "Hello, world!", map[string]string{"user": "A Name"})`,
	}
	InvalidLogMessage = Message{
		Text:    "The message is invalid.\nThe message must be valid UTF-8.",
		Example: `vigilant.LogInfo(ctx, "Hello, world!", nil)`,
	}
	InvalidMetricName = Message{
		Text:    "The metric name is invalid.\nThe name must be a non-empty string.",
		Example: `vigilant.MetricCounter("my_metric", 1, nil)`,
	}
	InvalidMetricValue = Message{
		Text:    "The metric value is invalid.\nThe value must be a finite number.",
		Example: `vigilant.MetricGauge("queue_depth", 12, nil)`,
	}
	InvalidAlertTitle = Message{
		Text:    "The alert title is invalid.\nThe title must be a non-empty string.",
		Example: `vigilant.CreateAlert(ctx, "Payment failed", nil)`,
	}
)

// Printer renders banners for one writer. Colour is dropped automatically
// when the writer is not a terminal.
type Printer struct {
	title   lipgloss.Style
	usage   lipgloss.Style
	example lipgloss.Style
}

func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		title:   r.NewStyle().Foreground(errorColor).Bold(true),
		usage:   r.NewStyle().Foreground(usageColor),
		example: r.NewStyle().PaddingLeft(2),
	}
}

// Warning renders a warning banner followed by text.
func (p *Printer) Warning(text string) string {
	return p.title.Render("[ **** Vigilant Warning **** ]") + "\n\n" + text + "\n"
}

// Error renders an error banner with the message and, when present, its
// correct usage example.
func (p *Printer) Error(m Message) string {
	var sb strings.Builder
	sb.WriteString(p.title.Render("[ **** Vigilant Error **** ]"))
	sb.WriteString("\n\n")
	sb.WriteString(m.Text)
	sb.WriteString("\n")
	if m.Example != "" {
		sb.WriteString("\n")
		sb.WriteString(p.usage.Render("[ **** Correct Usage **** ]"))
		sb.WriteString("\n\n")
		sb.WriteString(p.example.Render(m.Example))
		sb.WriteString("\n")
	}
	return sb.String()
}
