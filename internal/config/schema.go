package config

import "time"

const (
	DefaultEndpoint               = "ingress.vigilant.run"
	DefaultBatchInterval          = 100 * time.Millisecond
	DefaultMaxBatchSize           = 1000
	DefaultMetricsInterval        = time.Minute
	DefaultMetricsProcessInterval = time.Second
)

// Config is the SDK configuration, as passed to vigilant.Init or read from
// a YAML file.
type Config struct {
	// Name is the service name attached to every event as service.name.
	Name  string `yaml:"name"`
	Token string `yaml:"token"`
	// Endpoint is the collector host, without scheme or path.
	Endpoint string `yaml:"endpoint"`
	// Insecure selects http instead of https.
	Insecure bool `yaml:"insecure"`
	// Passthrough echoes every log and alert to the console.
	Passthrough bool `yaml:"passthrough"`
	// Autocapture turns process stdout and stderr lines into logs.
	Autocapture bool `yaml:"autocapture"`
	// Noop suppresses all network sends. Passthrough and autocapture still run.
	Noop bool `yaml:"noop"`
	// Attributes are attached to every event after service and ambient ones.
	Attributes              map[string]string `yaml:"attributes"`
	DisableAttributeStorage bool              `yaml:"disable_attribute_storage"`

	BatchInterval          time.Duration `yaml:"batch_interval"`
	MaxBatchSize           int           `yaml:"max_batch_size"`
	MetricsInterval        time.Duration `yaml:"metrics_interval"`
	MetricsProcessInterval time.Duration `yaml:"metrics_process_interval"`
}

// ApplyDefaults fills every optional zero field.
func ApplyDefaults(cfg *Config) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = DefaultBatchInterval
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.MetricsInterval <= 0 {
		cfg.MetricsInterval = DefaultMetricsInterval
	}
	if cfg.MetricsProcessInterval <= 0 {
		cfg.MetricsProcessInterval = DefaultMetricsProcessInterval
	}
}

// Builder assembles a Config fluently. Build applies defaults and validates.
type Builder struct {
	cfg Config
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) WithName(name string) *Builder {
	b.cfg.Name = name
	return b
}

func (b *Builder) WithToken(token string) *Builder {
	b.cfg.Token = token
	return b
}

func (b *Builder) WithEndpoint(endpoint string) *Builder {
	b.cfg.Endpoint = endpoint
	return b
}

func (b *Builder) WithInsecure(insecure bool) *Builder {
	b.cfg.Insecure = insecure
	return b
}

func (b *Builder) WithPassthrough(passthrough bool) *Builder {
	b.cfg.Passthrough = passthrough
	return b
}

func (b *Builder) WithAutocapture(autocapture bool) *Builder {
	b.cfg.Autocapture = autocapture
	return b
}

func (b *Builder) WithNoop(noop bool) *Builder {
	b.cfg.Noop = noop
	return b
}

// WithAttributes merges attrs into the global attributes.
func (b *Builder) WithAttributes(attrs map[string]string) *Builder {
	if b.cfg.Attributes == nil {
		b.cfg.Attributes = make(map[string]string, len(attrs))
	}
	for k, v := range attrs {
		b.cfg.Attributes[k] = v
	}
	return b
}

func (b *Builder) WithAttributeStorage(enabled bool) *Builder {
	b.cfg.DisableAttributeStorage = !enabled
	return b
}

func (b *Builder) WithBatchInterval(d time.Duration) *Builder {
	b.cfg.BatchInterval = d
	return b
}

func (b *Builder) WithMaxBatchSize(n int) *Builder {
	b.cfg.MaxBatchSize = n
	return b
}

func (b *Builder) WithMetricsInterval(d time.Duration) *Builder {
	b.cfg.MetricsInterval = d
	return b
}

// Build returns the assembled Config, or the joined validation errors.
func (b *Builder) Build() (Config, error) {
	cfg := b.cfg
	if cfg.Attributes != nil {
		attrs := make(map[string]string, len(cfg.Attributes))
		for k, v := range cfg.Attributes {
			attrs[k] = v
		}
		cfg.Attributes = attrs
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
