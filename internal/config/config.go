package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/policyengine/simprof/internal/model"
	"github.com/policyengine/simprof/internal/probe"
	"github.com/policyengine/simprof/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Profiler ProfilerConfig `yaml:"profiler" mapstructure:"profiler"`
	Variable VariableConfig `yaml:"variable" mapstructure:"variable"`
	Memory   MemoryConfig   `yaml:"memory" mapstructure:"memory"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ServerConfig configures the results API server.
type ServerConfig struct {
	Port             int `yaml:"port" mapstructure:"port"`
	ProfileEverySecs int `yaml:"profile_every_secs" mapstructure:"profile_every_secs"`
}

// ProfilerConfig configures the comparison defaults.
type ProfilerConfig struct {
	TopN           int     `yaml:"top_n" mapstructure:"top_n"`
	EpsilonSeconds float64 `yaml:"epsilon_seconds" mapstructure:"epsilon_seconds"`
}

// VariableConfig configures variable calculation profiling.
type VariableConfig struct {
	Points int `yaml:"points" mapstructure:"points"`
}

// MemoryConfig configures memory growth profiling.
type MemoryConfig struct {
	Builds int `yaml:"builds" mapstructure:"builds"`
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
	v.SetEnvPrefix("SIMPROF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "simprof.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.profile_every_secs", 30)
	v.SetDefault("profiler.top_n", model.DefaultTopN)
	v.SetDefault("profiler.epsilon_seconds", model.DefaultEpsilonSeconds)
	v.SetDefault("variable.points", probe.DefaultPoints)
	v.SetDefault("memory.builds", probe.DefaultBuilds)
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

// Validate rejects configurations the commands could not act on.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store driver %q (want sqlite or postgres)", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required for the postgres driver")
	}
	if c.Profiler.TopN < 0 {
		return eris.New("config: profiler.top_n must not be negative")
	}
	if c.Variable.Points < 0 {
		return eris.New("config: variable.points must not be negative")
	}
	if c.Memory.Builds < 0 {
		return eris.New("config: memory.builds must not be negative")
	}
	return nil
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
