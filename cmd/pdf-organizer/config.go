// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/pdf-organizer/internal/remote"
	"github.com/pdiddy/pdf-organizer/internal/render"
	"github.com/pdiddy/pdf-organizer/pkg/types"
)

// envPrefix namespaces environment overrides, e.g.
// PDF_ORGANIZER_PROCESSOR_ENDPOINT.
const envPrefix = "PDF_ORGANIZER"

var envKeyReplacer = strings.NewReplacer(".", "_")

const (
	defaultTimeout    = 120 * time.Second
	defaultUserAgent  = "pdf-organizer/0.1"
	defaultHistoryDir = "history"
	defaultMaxResults = 20
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("processor.endpoint", remote.DefaultEndpoint)
	v.SetDefault("processor.timeout", defaultTimeout)
	v.SetDefault("processor.user_agent", defaultUserAgent)
	v.SetDefault("render.scale", render.DefaultScale)
	v.SetDefault("render.image", render.DefaultPopplerImage)
	v.SetDefault("history.dir", defaultHistoryDir)
	v.SetDefault("history.max_results", defaultMaxResults)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// loadConfig decodes v into a Config and checks the values that would
// otherwise fail later with a less helpful error.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var c types.Config
	if err := v.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if c.Render.Scale <= 0 {
		return types.Config{}, fmt.Errorf("render.scale must be positive, got %v", c.Render.Scale)
	}
	if c.Processor.Timeout < 0 {
		return types.Config{}, fmt.Errorf("processor.timeout must not be negative, got %v", c.Processor.Timeout)
	}
	if c.Processor.Endpoint == "" {
		return types.Config{}, fmt.Errorf("processor.endpoint is empty")
	}
	return c, nil
}

func joinKeys(keys []string) string { return strings.Join(keys, ",") }
