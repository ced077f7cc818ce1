package config

import (
	"fmt"
	"os"
	"time"

	env "github.com/Netflix/go-env"
	"gopkg.in/yaml.v3"
)

// overrides lists the environment variables that may replace file or
// default values. Unset variables leave the field nil.
type overrides struct {
	Port            *string        `env:"SERVER_PORT"`
	AllowedOrigins  *string        `env:"ALLOWED_ORIGINS"`
	MaxMessageSize  *int64         `env:"MAX_MESSAGE_SIZE"`
	SendBufferSize  *int           `env:"SEND_BUFFER_SIZE"`
	PongWait        *time.Duration `env:"PONG_WAIT"`
	WriteWait       *time.Duration `env:"WRITE_WAIT"`
	ShutdownTimeout *time.Duration `env:"SHUTDOWN_TIMEOUT"`
	RoomIDLength    *int           `env:"ROOM_ID_LENGTH"`
	MetricsPath     *string        `env:"METRICS_PATH"`
	LogLevel        *string        `env:"LOG_LEVEL"`
	LogFormat       *string        `env:"LOG_FORMAT"`
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), and environment overrides, then sanitizes it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg.Sanitize(), nil
}

// loadFile reads a YAML config file, expanding ${VAR} references.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var o overrides
	if _, err := env.UnmarshalFromEnviron(&o); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if o.Port != nil {
		c.Port = *o.Port
	}
	if o.AllowedOrigins != nil {
		c.AllowedOrigins = parseOrigins(*o.AllowedOrigins)
	}
	if o.MaxMessageSize != nil {
		c.MaxMessageSize = *o.MaxMessageSize
	}
	if o.SendBufferSize != nil {
		c.SendBufferSize = *o.SendBufferSize
	}
	if o.PongWait != nil {
		c.PongWait = *o.PongWait
	}
	if o.WriteWait != nil {
		c.WriteWait = *o.WriteWait
	}
	if o.ShutdownTimeout != nil {
		c.ShutdownTimeout = *o.ShutdownTimeout
	}
	if o.RoomIDLength != nil {
		c.RoomIDLength = *o.RoomIDLength
	}
	if o.MetricsPath != nil {
		c.MetricsPath = *o.MetricsPath
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.LogFormat != nil {
		c.LogFormat = *o.LogFormat
	}
	return nil
}
