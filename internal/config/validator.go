package config

import (
	"errors"
	"strings"
)

var (
	ErrNameRequired     = errors.New("config: name is required")
	ErrTokenRequired    = errors.New("config: token is required")
	ErrEndpointRequired = errors.New("config: endpoint is required")
)

// Validate checks the required fields. Whitespace-only values count as
// missing. Every problem is reported, joined with errors.Join.
func Validate(cfg *Config) error {
	var errs []error
	if strings.TrimSpace(cfg.Name) == "" {
		errs = append(errs, ErrNameRequired)
	}
	if strings.TrimSpace(cfg.Token) == "" {
		errs = append(errs, ErrTokenRequired)
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		errs = append(errs, ErrEndpointRequired)
	}
	return errors.Join(errs...)
}
