// Package config loads the gateway's recognized environment/config options
// (spec §6: listen address/port, worker-thread count, PAM service name,
// keep-alive interval, inactivity timeout, max-events-per-wake, stream URL
// root) from environment variables and an optional config file, the way
// policy.go loads validation.labels.mutex from a viper.Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix every recognized environment variable carries,
// e.g. ROUSETTE_LISTEN_ADDR.
const EnvPrefix = "ROUSETTE"

// Config holds the gateway's recognized configuration, spec §6.
type Config struct {
	ListenAddr       string        `mapstructure:"listen_addr"`
	ListenPort       int           `mapstructure:"listen_port"`
	WorkerThreads    int           `mapstructure:"worker_threads"`
	PamService       string        `mapstructure:"pam_service"`
	KeepAlive        time.Duration `mapstructure:"keep_alive"`
	InactivityTimeout time.Duration `mapstructure:"inactivity_timeout"`
	MaxEventsPerWake int           `mapstructure:"max_events_per_wake"`
	StreamURLRoot    string        `mapstructure:"stream_url_root"`
}

// defaults mirror the teacher's posture of "sane standalone dev defaults",
// overridable by env var or file.
func defaults() Config {
	return Config{
		ListenAddr:        "0.0.0.0",
		ListenPort:        8443,
		WorkerThreads:     4,
		PamService:        "rousette",
		KeepAlive:         30 * time.Second,
		InactivityTimeout: 5 * time.Minute,
		MaxEventsPerWake:  16,
		StreamURLRoot:     "/streams/subscribed/",
	}
}

// Load builds a Config from, in increasing precedence order: built-in
// defaults, an optional config file (if configFile is non-empty), and
// ROUSETTE_-prefixed environment variables.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := defaults()
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("listen_port", d.ListenPort)
	v.SetDefault("worker_threads", d.WorkerThreads)
	v.SetDefault("pam_service", d.PamService)
	v.SetDefault("keep_alive", d.KeepAlive)
	v.SetDefault("inactivity_timeout", d.InactivityTimeout)
	v.SetDefault("max_events_per_wake", d.MaxEventsPerWake)
	v.SetDefault("stream_url_root", d.StreamURLRoot)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing configuration: %w", err)
	}
	if cfg.WorkerThreads < 1 {
		return Config{}, fmt.Errorf("worker_threads must be at least 1, got %d", cfg.WorkerThreads)
	}
	return cfg, nil
}

// Addr is the "host:port" form ListenAndServe expects.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddr, c.ListenPort)
}
