// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero means no client-side timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pdf-organizer/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ProcessorConfig holds settings for the remote document processor.
type ProcessorConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the URL that accepts the organize request.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// APIToken is sent as a bearer token when set.
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty" mapstructure:"api_token"`
}

// RenderConfig holds settings for thumbnail rendering.
type RenderConfig struct {
	// Scale is the preview scale factor relative to 72 DPI (default 0.4).
	Scale float64 `json:"scale" yaml:"scale" mapstructure:"scale"`

	// Image is the container image providing pdftoppm.
	Image string `json:"image" yaml:"image" mapstructure:"image"`
}

// HistoryConfig holds settings for the submission history store.
type HistoryConfig struct {
	// Dir is the directory holding the history database.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxResults is the default number of records listed (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all component configurations.
type Config struct {
	Processor ProcessorConfig `json:"processor" yaml:"processor" mapstructure:"processor"`
	Render    RenderConfig    `json:"render" yaml:"render" mapstructure:"render"`
	History   HistoryConfig   `json:"history" yaml:"history" mapstructure:"history"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}
