// Package config defines the relay's runtime settings: built-in defaults,
// an optional YAML file, environment overrides, and sanitization of the
// result.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/gossipgrid/internal/protocol"
)

// Config holds the server configuration settings.
type Config struct {
	Port            string        `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	SendBufferSize  int           `yaml:"send_buffer_size"`
	PongWait        time.Duration `yaml:"pong_wait"`
	WriteWait       time.Duration `yaml:"write_wait"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RoomIDLength    int           `yaml:"room_id_length"`
	MetricsPath     string        `yaml:"metrics_path"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`

	// AllowAllOrigins is set by Sanitize when AllowedOrigins contains "*".
	AllowAllOrigins bool `yaml:"-"`
}

// Default returns a Config populated with default values for all settings.
func Default() *Config {
	return &Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:5000",
			"http://localhost:8080",
		},
		MaxMessageSize:  4096,
		SendBufferSize:  256,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RoomIDLength:    6,
		MetricsPath:     "/metrics",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// PingPeriod is how often the server pings a client. It must be shorter
// than PongWait.
func (c *Config) PingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

// reservedPaths are served by the relay itself and cannot host metrics.
var reservedPaths = map[string]bool{"/": true, "/ws": true, "/stats": true}

// Sanitize replaces invalid values with their defaults and normalizes the
// origin allow-list.
func (c *Config) Sanitize() *Config {
	def := Default()

	if c.Port == "" {
		c.Port = def.Port
	}
	if !strings.Contains(c.Port, ":") {
		c.Port = ":" + c.Port
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = def.SendBufferSize
	}
	if c.PongWait <= 0 {
		c.PongWait = def.PongWait
	}
	if c.WriteWait <= 0 {
		c.WriteWait = def.WriteWait
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.RoomIDLength <= 0 || c.RoomIDLength > protocol.MaxRoomIDLength {
		c.RoomIDLength = def.RoomIDLength
	}
	if !strings.HasPrefix(c.MetricsPath, "/") || reservedPaths[c.MetricsPath] {
		c.MetricsPath = def.MetricsPath
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}

	origins, allowAll := NormalizeOrigins(c.AllowedOrigins)
	c.AllowedOrigins = origins
	c.AllowAllOrigins = c.AllowAllOrigins || allowAll
	return c
}

// NormalizeOrigins lower-cases and reduces each origin to scheme://host,
// dropping invalid entries. A "*" entry reports allowAll.
func NormalizeOrigins(origins []string) ([]string, bool) {
	if len(origins) == 0 {
		return nil, false
	}

	normalized := make([]string, 0, len(origins))
	allowAll := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			allowAll = true
			continue
		}

		normalizedOrigin, ok := NormalizeOrigin(trimmed)
		if !ok {
			logrus.WithField("origin", origin).Warn("Ignoring invalid origin in configuration")
			continue
		}

		normalized = append(normalized, normalizedOrigin)
	}

	return normalized, allowAll
}

// NormalizeOrigin reduces an origin to lower-case scheme://host.
func NormalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	normalized := strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host)
	return normalized, true
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
