package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gossipgrid/internal/protocol"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)

	cfg, err := Load("")
	req.NoError(err)

	req.Equal(":8080", cfg.Port)
	req.Equal([]string{"http://localhost:5000", "http://localhost:8080"}, cfg.AllowedOrigins)
	req.False(cfg.AllowAllOrigins)
	req.Equal(int64(4096), cfg.MaxMessageSize)
	req.Equal(256, cfg.SendBufferSize)
	req.Equal(60*time.Second, cfg.PongWait)
	req.Equal(54*time.Second, cfg.PingPeriod())
	req.Equal(10*time.Second, cfg.WriteWait)
	req.Equal(6, cfg.RoomIDLength)
	req.Equal("/metrics", cfg.MetricsPath)
	req.Equal("info", cfg.LogLevel)
	req.Equal("text", cfg.LogFormat)
}

func TestLoad_File(t *testing.T) {
	req := require.New(t)
	t.Setenv("TEST_RELAY_ORIGIN", "https://gossipgrid.netlify.app")

	path := writeTempFile(t, `
port: ":3000"
allowed_origins:
  - ${TEST_RELAY_ORIGIN}
  - HTTP://LocalHost:5000/path
max_message_size: 8192
pong_wait: 30s
room_id_length: 8
log_format: json
`)

	cfg, err := Load(path)
	req.NoError(err)

	req.Equal(":3000", cfg.Port)
	req.Equal([]string{"https://gossipgrid.netlify.app", "http://localhost:5000"}, cfg.AllowedOrigins)
	req.Equal(int64(8192), cfg.MaxMessageSize)
	req.Equal(30*time.Second, cfg.PongWait)
	req.Equal(27*time.Second, cfg.PingPeriod())
	req.Equal(8, cfg.RoomIDLength)
	req.Equal("json", cfg.LogFormat)
	// untouched values keep their defaults
	req.Equal(10*time.Second, cfg.WriteWait)
}

func TestLoad_Env_Overrides_File(t *testing.T) {
	req := require.New(t)
	path := writeTempFile(t, `
port: ":3000"
send_buffer_size: 16
`)

	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, *")
	t.Setenv("SEND_BUFFER_SIZE", "32")
	t.Setenv("WRITE_WAIT", "2s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	req.NoError(err)

	req.Equal(":9090", cfg.Port)
	req.Equal([]string{"http://a.example"}, cfg.AllowedOrigins)
	req.True(cfg.AllowAllOrigins)
	req.Equal(32, cfg.SendBufferSize)
	req.Equal(2*time.Second, cfg.WriteWait)
	req.Equal("debug", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	req := require.New(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	req.Error(err)

	_, err = Load(writeTempFile(t, "port: [unterminated"))
	req.Error(err)

	t.Setenv("SEND_BUFFER_SIZE", "lots")
	_, err = Load("")
	req.Error(err)
}

func TestSanitize_Falls_Back_To_Defaults(t *testing.T) {
	req := require.New(t)

	cfg := (&Config{
		MaxMessageSize: -1,
		SendBufferSize: 0,
		PongWait:       -time.Second,
		RoomIDLength:   -3,
		MetricsPath:    "metrics",
		AllowedOrigins: []string{"", "not-a-url", "http://"},
	}).Sanitize()

	def := Default()
	req.Equal(def.Port, cfg.Port)
	req.Equal(def.MaxMessageSize, cfg.MaxMessageSize)
	req.Equal(def.SendBufferSize, cfg.SendBufferSize)
	req.Equal(def.PongWait, cfg.PongWait)
	req.Equal(def.WriteWait, cfg.WriteWait)
	req.Equal(def.ShutdownTimeout, cfg.ShutdownTimeout)
	req.Equal(def.RoomIDLength, cfg.RoomIDLength)
	req.Equal(def.MetricsPath, cfg.MetricsPath)
	req.Empty(cfg.AllowedOrigins)
	req.False(cfg.AllowAllOrigins)
}

func TestSanitize_Room_ID_Length_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{name: "at wire limit", length: protocol.MaxRoomIDLength, want: protocol.MaxRoomIDLength},
		{name: "above wire limit", length: protocol.MaxRoomIDLength + 16, want: Default().RoomIDLength},
		{name: "huge", length: 1 << 30, want: Default().RoomIDLength},
		{name: "short", length: 4, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := (&Config{RoomIDLength: tt.length}).Sanitize()
			require.Equal(t, tt.want, cfg.RoomIDLength)
		})
	}
}

func TestSanitize_Reserved_Metrics_Path(t *testing.T) {
	for _, path := range []string{"/", "/ws", "/stats"} {
		t.Run(path, func(t *testing.T) {
			cfg := (&Config{MetricsPath: path}).Sanitize()
			require.Equal(t, Default().MetricsPath, cfg.MetricsPath)
		})
	}
}

func TestNormalizeOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   string
		ok     bool
	}{
		{origin: "http://localhost:8080", want: "http://localhost:8080", ok: true},
		{origin: "HTTPS://Example.COM/some/path", want: "https://example.com", ok: true},
		{origin: "example.com", ok: false},
		{origin: "http://", ok: false},
		{origin: "://missing-scheme", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			got, ok := NormalizeOrigin(tt.origin)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
