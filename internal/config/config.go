// Package config loads ClientConfig from a YAML file plus OLLA_-prefixed
// (renamed HTTPCORE_) environment overrides, hot-reloading on file change
// the same way the teacher's Load/WatchConfig pair does.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultFileWriteDelay = 150 * time.Millisecond
	reloadDebounce        = 500 * time.Millisecond
)

var (
	lastReload  time.Time
	reloadMutex sync.Mutex
)

// DefaultConfig returns the configuration spec.md §6 implies when a
// caller supplies none: bounded pools, a generous connect/read timeout,
// a conservative retry budget, decoded content, and auto-redirect.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Pool: PoolConfig{
			NumPools: 10,
			Maxsize:  10,
			Block:    false,
		},
		Timeout: TimeoutConfig{
			Connect: 10 * time.Second,
			Read:    30 * time.Second,
		},
		Retry: RetryConfig{
			Total:                   3,
			Connect:                 3,
			Read:                    3,
			Status:                  3,
			Redirect:                5,
			Other:                   3,
			AllowedMethods:          []string{"GET", "HEAD", "PUT", "DELETE", "OPTIONS", "TRACE"},
			StatusForcelist:         []int{413, 429, 503},
			BackoffFactor:           0,
			BackoffMax:              120 * time.Second,
			BackoffJitter:           0,
			RespectRetryAfterHeader: true,
		},
		SSL: SSLConfig{
			MinVersion: "1.2",
		},
		Request: RequestConfig{
			DecodeContent:   true,
			Redirect:        true,
			MaxDecoders:     5,
			MaxDecodedBytes: 0,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Theme:      "default",
			PrettyLogs: true,
		},
	}
}

// Load reads ClientConfig from ./config.yaml (or $HTTPCORE_CONFIG_FILE),
// falling back to DefaultConfig fields for anything unset, and arms a
// watch that invokes onConfigChange after a debounced file-write delay.
// The callback is only a notification: the returned struct is not
// re-read, and no Client method applies a changed config.
func Load(onConfigChange func()) (*ClientConfig, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("HTTPCORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if configFile := os.Getenv("HTTPCORE_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	viper.WatchConfig()

	if onConfigChange != nil {
		viper.OnConfigChange(func(e fsnotify.Event) {
			reloadMutex.Lock()
			defer reloadMutex.Unlock()

			now := time.Now()
			if now.Sub(lastReload) < reloadDebounce {
				return
			}
			lastReload = now

			// fsnotify on some platforms fires before the write completes.
			time.Sleep(DefaultFileWriteDelay)
			onConfigChange()
		})
	}
	return cfg, nil
}
