package configloader

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when CONFIG_PATH is not set.
const DefaultConfigPath = "config/config.yml"

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port         string   `yaml:"port"`
	ReadTimeout  int      `yaml:"readTimeout"`  // seconds
	WriteTimeout int      `yaml:"writeTimeout"` // seconds
	IdleTimeout  int      `yaml:"idleTimeout"`  // seconds
	CORSOrigins  []string `yaml:"corsOrigins"`
	EnablePprof  bool     `yaml:"enablePprof"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level       string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
	Development bool   `yaml:"development"`
}

// SwaggerConfig holds configuration for Swagger UI.
type SwaggerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	SpecFile string `yaml:"specFile"`
}

// CompilerConfig holds the remote compile service client configuration.
type CompilerConfig struct {
	BaseURL              string  `yaml:"baseURL"`
	RequestTimeoutMillis int64   `yaml:"requestTimeoutMillis"`
	RateLimit            float64 `yaml:"rateLimit"` // requests per second
	BurstLimit           int     `yaml:"burstLimit"`
	CacheTTLMinutes      int     `yaml:"cacheTTLMinutes"`
}

// WalletConfig holds the external wallet endpoint configuration.
type WalletConfig struct {
	Endpoint            string `yaml:"endpoint"`
	WatchIntervalMillis int64  `yaml:"watchIntervalMillis"` // 0 disables the chain watcher
}

// NetworksConfig holds per-network overrides applied before the registry is frozen.
type NetworksConfig struct {
	RPCOverrides map[string]string `yaml:"rpcOverrides"` // key: network nickname
}

// RpcClientConfig holds configuration for RPC clients.
type RpcClientConfig struct {
	DefaultTimeoutMs      int64 `yaml:"defaultTimeoutMs"`
	MaxRetries            int   `yaml:"maxRetries"`
	RetryDelayMs          int64 `yaml:"retryDelayMs"`
	ReceiptPollIntervalMs int64 `yaml:"receiptPollIntervalMs"`
	ReceiptTimeoutMs      int64 `yaml:"receiptTimeoutMs"`
}

// RecommendationConfig holds the metric table source.
type RecommendationConfig struct {
	MetricsFile string `yaml:"metricsFile"` // empty means the built-in table
}

// SessionConfig holds session store settings.
type SessionConfig struct {
	TTLMinutes int `yaml:"ttlMinutes"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	Swagger        SwaggerConfig        `yaml:"swagger"`
	Compiler       CompilerConfig       `yaml:"compiler"`
	Wallet         WalletConfig         `yaml:"wallet"`
	Networks       NetworksConfig       `yaml:"networks"`
	RpcClient      RpcClientConfig      `yaml:"rpcClient"`
	Recommendation RecommendationConfig `yaml:"recommendation"`
	Session        SessionConfig        `yaml:"session"`
}

// Load reads the YAML configuration file from the given path, unmarshals it and applies defaults.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}
	return cfg, nil
}

// Parse unmarshals YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 15
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 60
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
		logrus.Infof("Server.CORSOrigins not set, defaulting to %v", cfg.Server.CORSOrigins)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Swagger.SpecFile == "" {
		cfg.Swagger.SpecFile = "./docs/swagger.yaml"
	}

	if cfg.Compiler.BaseURL == "" {
		cfg.Compiler.BaseURL = "http://localhost:5000"
		logrus.Infof("Compiler.BaseURL not set, defaulting to %s", cfg.Compiler.BaseURL)
	}
	cfg.Compiler.BaseURL = strings.TrimRight(cfg.Compiler.BaseURL, "/")
	if cfg.Compiler.RequestTimeoutMillis <= 0 {
		cfg.Compiler.RequestTimeoutMillis = 30000 // compiles can be slow
		logrus.Infof("Compiler.RequestTimeoutMillis not set, defaulting to %d ms", cfg.Compiler.RequestTimeoutMillis)
	}
	if cfg.Compiler.RateLimit <= 0 {
		cfg.Compiler.RateLimit = 2
	}
	if cfg.Compiler.BurstLimit <= 0 {
		cfg.Compiler.BurstLimit = 4
	}
	if cfg.Compiler.CacheTTLMinutes <= 0 {
		cfg.Compiler.CacheTTLMinutes = 60
	}

	if cfg.Wallet.Endpoint == "" {
		cfg.Wallet.Endpoint = "http://127.0.0.1:1248"
		logrus.Infof("Wallet.Endpoint not set, defaulting to %s", cfg.Wallet.Endpoint)
	}
	if cfg.Wallet.WatchIntervalMillis < 0 {
		cfg.Wallet.WatchIntervalMillis = 0
	}

	if cfg.RpcClient.DefaultTimeoutMs <= 0 {
		cfg.RpcClient.DefaultTimeoutMs = 10000
	}
	if cfg.RpcClient.MaxRetries <= 0 {
		cfg.RpcClient.MaxRetries = 3
	}
	if cfg.RpcClient.RetryDelayMs <= 0 {
		cfg.RpcClient.RetryDelayMs = 500
	}
	if cfg.RpcClient.ReceiptPollIntervalMs <= 0 {
		cfg.RpcClient.ReceiptPollIntervalMs = 1000
	}
	if cfg.RpcClient.ReceiptTimeoutMs <= 0 {
		cfg.RpcClient.ReceiptTimeoutMs = 5 * 60 * 1000
		logrus.Infof("RpcClient.ReceiptTimeoutMs not set, defaulting to %d ms", cfg.RpcClient.ReceiptTimeoutMs)
	}

	if cfg.Session.TTLMinutes <= 0 {
		cfg.Session.TTLMinutes = 30
	}
}

// Validate reports configuration values that defaults cannot repair.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Compiler.BaseURL, "http://") && !strings.HasPrefix(c.Compiler.BaseURL, "https://") {
		return fmt.Errorf("compiler.baseURL must be an http(s) URL, got %q", c.Compiler.BaseURL)
	}
	if !strings.HasPrefix(c.Wallet.Endpoint, "http://") && !strings.HasPrefix(c.Wallet.Endpoint, "https://") &&
		!strings.HasPrefix(c.Wallet.Endpoint, "ws://") && !strings.HasPrefix(c.Wallet.Endpoint, "wss://") {
		return fmt.Errorf("wallet.endpoint must be an http(s) or ws(s) URL, got %q", c.Wallet.Endpoint)
	}
	for key, url := range c.Networks.RPCOverrides {
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("networks.rpcOverrides.%s is empty", key)
		}
	}
	return nil
}

// ApplyEnvRPCOverrides lets <KEY>_RPC_URL environment variables (e.g. ARBITRUM_RPC_URL) override
// the RPC endpoint of the matching network. Environment values win over the YAML file.
func ApplyEnvRPCOverrides(cfg *Config, keys []string) {
	for _, key := range keys {
		envName := strings.ToUpper(key) + "_RPC_URL"
		value := strings.TrimSpace(os.Getenv(envName))
		if value == "" {
			continue
		}
		if cfg.Networks.RPCOverrides == nil {
			cfg.Networks.RPCOverrides = make(map[string]string)
		}
		cfg.Networks.RPCOverrides[key] = value
		logrus.Infof("RPC endpoint for %s taken from %s", key, envName)
	}
}

// ReceiptPollInterval returns the receipt polling interval.
func (c RpcClientConfig) ReceiptPollInterval() time.Duration {
	return time.Duration(c.ReceiptPollIntervalMs) * time.Millisecond
}

// ReceiptTimeout returns how long a deployment waits for its receipt.
func (c RpcClientConfig) ReceiptTimeout() time.Duration {
	return time.Duration(c.ReceiptTimeoutMs) * time.Millisecond
}

// DefaultTimeout returns the per-call RPC timeout.
func (c RpcClientConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMs) * time.Millisecond
}

// RequestTimeout returns the compile request timeout.
func (c CompilerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMillis) * time.Millisecond
}

// CacheTTL returns how long compile results are cached.
func (c CompilerConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// WatchInterval returns the chain watcher polling interval; zero disables it.
func (c WalletConfig) WatchInterval() time.Duration {
	return time.Duration(c.WatchIntervalMillis) * time.Millisecond
}

// TTL returns the idle session lifetime.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}
