// Package config loads service settings from a config file, the environment
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CSMS_SERVER_PORT.
const EnvPrefix = "CSMS"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	OCPP      OCPPConfig      `mapstructure:"ocpp"`
	Events    EventsConfig    `mapstructure:"events"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Path            string        `mapstructure:"path"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type OCPPConfig struct {
	// HeartbeatInterval is the interval in seconds handed out on boot.
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
}

type EventsConfig struct {
	// NATSURL enables event publishing when set.
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.path", "/ocpp")
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.ping_interval", 54*time.Second)
	v.SetDefault("server.max_message_bytes", 64*1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.messages_per_second", 20.0)
	v.SetDefault("ratelimit.burst", 40)
	v.SetDefault("ocpp.heartbeat_interval", 300)
	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject_prefix", "csms.chargepoint")
}

// Load reads configuration. Precedence from highest: flags, environment,
// config file, defaults.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("csms", pflag.ContinueOnError)
	fs.Int("port", 8081, "HTTP listen port")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	configFile := fs.String("config", "", "path to a config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.BindPFlag("server.port", fs.Lookup("port")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("log.level", fs.Lookup("log-level")); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if *configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("server.path %q must start with /", c.Server.Path)
	}
	if c.OCPP.HeartbeatInterval <= 0 {
		return fmt.Errorf("ocpp.heartbeat_interval must be positive, got %d", c.OCPP.HeartbeatInterval)
	}
	if c.RateLimit.Enabled && c.RateLimit.MessagesPerSecond <= 0 {
		return fmt.Errorf("ratelimit.messages_per_second must be positive, got %g", c.RateLimit.MessagesPerSecond)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
