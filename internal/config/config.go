package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	KBB    KBBConfig    `yaml:"kbb" mapstructure:"kbb"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// KBBConfig configures the provider client.
type KBBConfig struct {
	APIKey        string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	CallSpacingMS int    `yaml:"call_spacing_ms" mapstructure:"call_spacing_ms"`
	RetryWaitMS   int    `yaml:"retry_wait_ms" mapstructure:"retry_wait_ms"`
	MaxRetries    int    `yaml:"max_retries" mapstructure:"max_retries"`
	DefaultZip    string `yaml:"default_zip" mapstructure:"default_zip"`
}

// CallSpacing returns the minimum gap between provider calls.
func (c KBBConfig) CallSpacing() time.Duration {
	return time.Duration(c.CallSpacingMS) * time.Millisecond
}

// RetryWait returns the fixed wait between 429 retries.
func (c KBBConfig) RetryWait() time.Duration {
	return time.Duration(c.RetryWaitMS) * time.Millisecond
}

// BatchConfig configures the batch pipeline.
type BatchConfig struct {
	Concurrency     int     `yaml:"concurrency" mapstructure:"concurrency"`
	EarlyStopRatio  float64 `yaml:"early_stop_ratio" mapstructure:"early_stop_ratio"`
	ValidationLevel int     `yaml:"validation_level" mapstructure:"validation_level"`
}

// ServerConfig configures the batch HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VINVALUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("kbb.base_url", "https://api.kbb.com/idws")
	v.SetDefault("kbb.call_spacing_ms", 250)
	v.SetDefault("kbb.retry_wait_ms", 1000)
	v.SetDefault("kbb.max_retries", 60)
	v.SetDefault("kbb.default_zip", "96819")
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.early_stop_ratio", 0.2)
	v.SetDefault("batch.validation_level", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
