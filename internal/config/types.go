package config

import "time"

// ClientConfig holds every option spec.md §6 enumerates, grouped the way
// the teacher nests its own config (one struct per concern, yaml tags
// matching the nesting convention pool.*/timeout.*/retry.*/proxy.*).
type ClientConfig struct {
	Pool    PoolConfig    `yaml:"pool"`
	Timeout TimeoutConfig `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
	Proxy   ProxyConfig   `yaml:"proxy"`
	SSL     SSLConfig     `yaml:"ssl"`
	Request RequestConfig `yaml:"request"`
	Logging LoggingConfig `yaml:"logging"`
}

// PoolConfig is the LRU-of-pools and per-origin idle capacity knobs.
type PoolConfig struct {
	NumPools int  `yaml:"num_pools"`
	Maxsize  int  `yaml:"maxsize"`
	Block    bool `yaml:"block"`
}

// TimeoutConfig is the default Timeout merged into every Request that
// doesn't specify its own.
type TimeoutConfig struct {
	Connect time.Duration `yaml:"connect"`
	Read    time.Duration `yaml:"read"`
}

// RetryConfig is the default Retry budget and backoff policy.
type RetryConfig struct {
	Total                   int           `yaml:"total"`
	Connect                 int           `yaml:"connect"`
	Read                    int           `yaml:"read"`
	Status                  int           `yaml:"status"`
	Redirect                int           `yaml:"redirect"`
	Other                   int           `yaml:"other"`
	AllowedMethods          []string      `yaml:"allowed_methods"`
	StatusForcelist         []int         `yaml:"status_forcelist"`
	BackoffFactor           time.Duration `yaml:"backoff_factor"`
	BackoffMax              time.Duration `yaml:"backoff_max"`
	BackoffJitter           time.Duration `yaml:"backoff_jitter"`
	RespectRetryAfterHeader bool          `yaml:"respect_retry_after_header"`
}

// ProxyConfig is the optional forward-proxy target and extra headers
// applied only to the CONNECT/forward request (§6 `proxy`/`proxy_headers`).
type ProxyConfig struct {
	URL                   string            `yaml:"url"`
	Headers               map[string]string `yaml:"headers"`
	UseForwardingForHTTPS bool              `yaml:"use_forwarding_for_https"`
}

// SSLConfig is passed through to the TLS provider; any field that
// changes bytes-on-wire (min version, cipher suites, cert pinning)
// must also feed PoolKey derivation per §6 `ssl_*`.
type SSLConfig struct {
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
	MinVersion         string   `yaml:"min_version"`
	ServerName         string   `yaml:"server_name"`
	CAFile             string   `yaml:"ca_file"`
	ALPN               []string `yaml:"alpn"`
	KeyLogFile         string   `yaml:"key_log_file"`
}

// RequestConfig holds the per-request defaults that aren't part of the
// retry/timeout/pool concerns but still need a central default.
type RequestConfig struct {
	Headers         map[string]string `yaml:"headers"`
	PreloadContent  bool              `yaml:"preload_content"`
	DecodeContent   bool              `yaml:"decode_content"`
	Redirect        bool              `yaml:"redirect"`
	MaxDecoders     int               `yaml:"max_decoders"`
	MaxDecodedBytes int64             `yaml:"max_decoded_bytes"`
}

// LoggingConfig mirrors internal/logger.Config's shape for YAML binding.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Theme      string `yaml:"theme"`
	PrettyLogs bool   `yaml:"pretty_logs"`
	FileOutput bool   `yaml:"file_output"`
	LogDir     string `yaml:"log_dir"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}
