package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceConfig is one quote provider in the ordered fallback chain.
type SourceConfig struct {
	Name    string        `yaml:"name"`
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	// Sources is the ordered fallback chain of quote providers; the first
	// entry is tried first on every refresh.
	Sources []SourceConfig `yaml:"sources"`
	Cache   struct {
		TTL           time.Duration `yaml:"ttl"`
		BatchWorkers  int           `yaml:"batch_workers"`
		BatchTimeout  time.Duration `yaml:"batch_timeout"`
		MemoryMaxSize int           `yaml:"memory_max_size"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		EventsTopic  string   `yaml:"events_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
	} `yaml:"kafka"`
	Features struct {
		Lookback     int `yaml:"lookback"`
		RSIPeriod    int `yaml:"rsi_period"`
		MACDFast     int `yaml:"macd_fast"`
		MACDSlow     int `yaml:"macd_slow"`
		MACDSignal   int `yaml:"macd_signal"`
		BollPeriod   int `yaml:"boll_period"`
		ATRPeriod    int `yaml:"atr_period"`
		VolumeWindow int `yaml:"volume_window"`
	} `yaml:"features"`
	Predictor struct {
		MinTrainBars  int           `yaml:"min_train_bars"`
		StaleAfter    time.Duration `yaml:"stale_after"`
		TrainTimeout  time.Duration `yaml:"train_timeout"`
		Seed          int64         `yaml:"seed"`
		FlatThreshold float64       `yaml:"flat_threshold"`
	} `yaml:"predictor"`
	Backtest struct {
		FeeRate     float64 `yaml:"fee_rate"`
		SlippageBps float64 `yaml:"slippage_bps"`
	} `yaml:"backtest"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	for i := range c.Sources {
		env := strings.ToUpper(c.Sources[i].Name) + "_API_KEY"
		if v := os.Getenv(env); v != "" {
			c.Sources[i].APIKey = v
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		if host, port, ok := strings.Cut(v, ":"); ok {
			c.Cache.Redis.Host = host
			_, _ = fmt.Sscanf(port, "%d", &c.Cache.Redis.Port)
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 24 * time.Hour
	}
	if c.Cache.BatchWorkers <= 0 {
		c.Cache.BatchWorkers = 4
	}
	if c.Cache.BatchTimeout <= 0 {
		c.Cache.BatchTimeout = 2 * time.Minute
	}
	if c.Cache.MemoryMaxSize <= 0 {
		c.Cache.MemoryMaxSize = 1000
	}
	if c.Features.Lookback <= 0 {
		c.Features.Lookback = 50
	}
	if c.Features.RSIPeriod <= 0 {
		c.Features.RSIPeriod = 14
	}
	if c.Features.MACDFast <= 0 {
		c.Features.MACDFast = 12
	}
	if c.Features.MACDSlow <= 0 {
		c.Features.MACDSlow = 26
	}
	if c.Features.MACDSignal <= 0 {
		c.Features.MACDSignal = 9
	}
	if c.Features.BollPeriod <= 0 {
		c.Features.BollPeriod = 20
	}
	if c.Features.ATRPeriod <= 0 {
		c.Features.ATRPeriod = 14
	}
	if c.Features.VolumeWindow <= 0 {
		c.Features.VolumeWindow = 20
	}
	if c.Predictor.MinTrainBars <= 0 {
		c.Predictor.MinTrainBars = 100
	}
	if c.Predictor.StaleAfter <= 0 {
		c.Predictor.StaleAfter = 7 * 24 * time.Hour
	}
	if c.Predictor.TrainTimeout <= 0 {
		c.Predictor.TrainTimeout = 2 * time.Minute
	}
	if c.Predictor.Seed == 0 {
		c.Predictor.Seed = 42
	}
	if c.Predictor.FlatThreshold <= 0 {
		c.Predictor.FlatThreshold = 0.55
	}
	if c.Backtest.FeeRate <= 0 {
		c.Backtest.FeeRate = 0.001
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("sources cannot be empty")
	}
	for _, s := range c.Sources {
		switch s.Name {
		case "yahoo", "alphavantage":
		default:
			return fmt.Errorf("unknown source '%s' (supported: yahoo, alphavantage)", s.Name)
		}
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.Features.MACDFast >= c.Features.MACDSlow {
		return fmt.Errorf("features.macd_fast must be below macd_slow")
	}
	return nil
}
