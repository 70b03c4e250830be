// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdf-organizer CLI. It drives one
// organize session per invocation: load a PDF, render previews, record page
// operations, and submit them to the remote processor.
package main

import (
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf-organizer/internal/logging"
	"github.com/pdiddy/pdf-organizer/internal/secrets"
	"github.com/pdiddy/pdf-organizer/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the resolved configuration, populated before any command runs.
	cfg types.Config

	// loadedSecrets holds credentials loaded from .secrets/ at startup.
	loadedSecrets secrets.Secrets

	// logger writes structured logs to stderr. Stdout carries command output.
	logger = logging.Discard()
)

// rootCmd is the base command for the pdf-organizer CLI.
var rootCmd = &cobra.Command{
	Use:   "pdf-organizer",
	Short: "Rotate, delete, and duplicate PDF pages through a remote processor",
	Long: `pdf-organizer loads a PDF, renders a thumbnail per page, records an
ordered list of page operations (rotate, delete, duplicate), and submits the
original document together with the operations to a remote processor that
returns the organized PDF.

Page indices are zero-based. Thumbnails are rendered with pdftoppm inside a
docker or podman container.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = loadConfig(viper.GetViper()); err != nil {
			return err
		}
		logger = newLogger(cfg.Log)

		s, err := secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		cfg.Processor.APIToken = loadedSecrets.Or(secrets.ProcessorAPIToken, cfg.Processor.APIToken)
		if keys := s.Keys(); len(keys) > 0 {
			logger.Debug().Str("keys", joinKeys(keys)).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdf-organizer.yaml or ~/.config/pdf-organizer/pdf-organizer.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdf-organizer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdf-organizer"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// A missing config file is fine; defaults and env cover every key.
	_ = viper.ReadInConfig()
}

func newLogger(c types.LogConfig) *bolt.Logger {
	lc := logging.DefaultConfig()
	if c.Level != "" {
		lc.Level = c.Level
	}
	if c.Format != "" {
		lc.Format = c.Format
	}
	l := logging.New(lc)
	if used := viper.ConfigFileUsed(); used != "" {
		l.Debug().Str("path", used).Msg("using config file")
	}
	return l
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
