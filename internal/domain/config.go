package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Backend      BackendConfig      `mapstructure:"backend"`
	Download     DownloadConfig     `mapstructure:"download"`
	Progress     ProgressConfig     `mapstructure:"progress"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains the local control API listener
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"` // "*" allows every origin
}

// BackendConfig contains the remote media-fetch service endpoints
type BackendConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	SocketURL         string `mapstructure:"socket_url"` // defaults to BaseURL
	UseTransferHandle bool   `mapstructure:"use_transfer_handle"`
}

// DownloadConfig contains transfer-related configuration
type DownloadConfig struct {
	OutputDir        string        `mapstructure:"output_dir"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	RestrictedHosts  []string      `mapstructure:"restricted_hosts"`
	DefaultFilter    string        `mapstructure:"default_filter"`
}

// ProgressConfig contains push progress channel configuration
type ProgressConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // log, osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // categorized event logs; empty disables them
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Backend: BackendConfig{
			BaseURL:           "https://videold-backend.onrender.com",
			UseTransferHandle: false,
		},
		Download: DownloadConfig{
			OutputDir:        "$HOME/Downloads/videold",
			ProgressInterval: DefaultSampleInterval,
			RestrictedHosts:  []string{"facebook.com"},
			DefaultFilter:    FilterAll,
		},
		Progress: ProgressConfig{
			Enabled:        false,
			ReconnectDelay: 2 * time.Second,
		},
		Notification: NotificationConfig{
			Enabled: true,
			Method:  "log",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}

// ProgressURL returns the progress channel endpoint
func (c BackendConfig) ProgressURL() string {
	if c.SocketURL != "" {
		return c.SocketURL
	}
	return c.BaseURL
}
