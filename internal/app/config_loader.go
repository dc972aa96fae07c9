package app

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"github.com/yourusername/videold-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.videold")
		v.AddConfigPath("/etc/videold")
	}

	v.SetEnvPrefix("VIDEOLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)
	config.Download.DefaultFilter = strings.ToLower(config.Download.DefaultFilter)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnv registers every key so AutomaticEnv can override values absent from the file
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"server.host", "server.port", "server.allowed_origins",
		"backend.base_url", "backend.socket_url", "backend.use_transfer_handle",
		"download.output_dir", "download.progress_interval", "download.restricted_hosts", "download.default_filter",
		"progress.enabled", "progress.reconnect_delay",
		"notification.enabled", "notification.method",
		"logging.level", "logging.format", "logging.output_path", "logging.logs_dir",
	} {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig reports every problem with the configuration at once
func validateConfig(config *domain.Config) error {
	var result *multierror.Error

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("invalid server port: %d", config.Server.Port))
	}

	if err := validateEndpoint("backend.base_url", config.Backend.BaseURL, "http", "https"); err != nil {
		result = multierror.Append(result, err)
	}
	if config.Backend.SocketURL != "" {
		if err := validateEndpoint("backend.socket_url", config.Backend.SocketURL, "http", "https", "ws", "wss"); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if config.Download.OutputDir == "" {
		result = multierror.Append(result, fmt.Errorf("download output directory not configured"))
	}
	if config.Download.ProgressInterval < 0 {
		result = multierror.Append(result, fmt.Errorf("progress interval cannot be negative"))
	}
	if !domain.ValidFilter(config.Download.DefaultFilter) {
		result = multierror.Append(result, fmt.Errorf("invalid default filter %q (want one of %s)",
			config.Download.DefaultFilter, strings.Join(domain.FilterTabs, ", ")))
	}

	if config.Progress.ReconnectDelay < 0 {
		result = multierror.Append(result, fmt.Errorf("progress reconnect delay cannot be negative"))
	}

	switch config.Notification.Method {
	case "log", "osascript", "notify-send":
	default:
		result = multierror.Append(result, fmt.Errorf("unknown notification method: %q", config.Notification.Method))
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return result.ErrorOrNil()
}

func validateEndpoint(key, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s not configured", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q: want %s URL", key, raw, strings.Join(schemes, "/"))
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range map[string]any{
		"server.host":                 config.Server.Host,
		"server.port":                 config.Server.Port,
		"server.allowed_origins":      config.Server.AllowedOrigins,
		"backend.base_url":            config.Backend.BaseURL,
		"backend.socket_url":          config.Backend.SocketURL,
		"backend.use_transfer_handle": config.Backend.UseTransferHandle,
		"download.output_dir":         config.Download.OutputDir,
		"download.progress_interval":  config.Download.ProgressInterval.String(),
		"download.restricted_hosts":   config.Download.RestrictedHosts,
		"download.default_filter":     config.Download.DefaultFilter,
		"progress.enabled":            config.Progress.Enabled,
		"progress.reconnect_delay":    config.Progress.ReconnectDelay.String(),
		"notification.enabled":        config.Notification.Enabled,
		"notification.method":         config.Notification.Method,
		"logging.level":               config.Logging.Level,
		"logging.format":              config.Logging.Format,
		"logging.output_path":         config.Logging.OutputPath,
		"logging.logs_dir":            config.Logging.LogsDir,
	} {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
