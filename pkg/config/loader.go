package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading with Viper.
type Loader struct {
	viper *viper.Viper
}

// ConfigPathEnv overrides the config file location when no explicit path is given.
const ConfigPathEnv = "HQCONSOLE_CONFIG_FILE"

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".hqconsole"))
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("HQCONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())

	return &Loader{viper: v}
}

// setDefaults registers every leaf key so AutomaticEnv can override keys absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("transport.url", cfg.Transport.URL)
	v.SetDefault("transport.handshake_timeout_ms", cfg.Transport.HandshakeTimeoutMs)
	v.SetDefault("transport.reconnect_min_ms", cfg.Transport.ReconnectMinMs)
	v.SetDefault("transport.reconnect_max_ms", cfg.Transport.ReconnectMaxMs)
	v.SetDefault("transport.ping_interval_s", cfg.Transport.PingIntervalS)
	v.SetDefault("transport.write_queue", cfg.Transport.WriteQueue)
	v.SetDefault("transport.read_limit", cfg.Transport.ReadLimit)

	v.SetDefault("logger.level", cfg.Logger.Level)
	v.SetDefault("logger.output_path", cfg.Logger.OutputPath)
	v.SetDefault("logger.max_size", cfg.Logger.MaxSize)
	v.SetDefault("logger.max_backups", cfg.Logger.MaxBackups)
	v.SetDefault("logger.max_age", cfg.Logger.MaxAge)
	v.SetDefault("logger.compress", cfg.Logger.Compress)
	v.SetDefault("logger.development", cfg.Logger.Development)

	v.SetDefault("events.log_publishes", cfg.Events.LogPublishes)

	v.SetDefault("confirm.mode", cfg.Confirm.Mode)
	v.SetDefault("confirm.destructive", cfg.Confirm.Destructive)

	v.SetDefault("hub.host", cfg.Hub.Host)
	v.SetDefault("hub.port", cfg.Hub.Port)
	v.SetDefault("hub.redis_source", cfg.Hub.RedisSource)
	v.SetDefault("hub.redis_prefix", cfg.Hub.RedisPrefix)
	v.SetDefault("hub.demo", cfg.Hub.Demo)
	v.SetDefault("hub.demo_schedule", cfg.Hub.DemoSchedule)

	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)
}

// Load loads the configuration from file and environment variables.
// If configPath is empty, HQCONSOLE_CONFIG_FILE and then the default paths are searched.
// A missing file is created with default values.
func (l *Loader) Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if strings.TrimSpace(configPath) == "" {
		configPath = strings.TrimSpace(os.Getenv(ConfigPathEnv))
	}
	explicitPath := strings.TrimSpace(configPath) != ""
	resolvedPath, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}

	if explicitPath {
		l.viper.SetConfigFile(resolvedPath)
	}

	if err := l.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := SaveToFile(cfg, resolvedPath); err != nil {
			return nil, fmt.Errorf("creating config file: %w", err)
		}
	}

	if err := l.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	return l.Load(path)
}

// Save saves the configuration to a file. The format follows the extension.
func (l *Loader) Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	format := "json"
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	}

	v := viper.New()
	v.SetConfigType(format)

	v.Set("transport", cfg.Transport)
	v.Set("logger", cfg.Logger)
	v.Set("events", cfg.Events)
	v.Set("confirm", cfg.Confirm)
	v.Set("hub", cfg.Hub)
	v.Set("redis", cfg.Redis)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SaveToFile is a convenience function to save config without creating a Loader.
func SaveToFile(cfg *Config, path string) error {
	return NewLoader().Save(path, cfg)
}

// GetConfigHome returns the default config directory.
func GetConfigHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".hqconsole"), nil
}

// GetConfigPath returns the path of the loaded config file.
func (l *Loader) GetConfigPath() string {
	return l.viper.ConfigFileUsed()
}

func resolveConfigPath(configPath string) (string, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		home, err := GetConfigHome()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, "config.json")
	}
	abs, err := filepath.Abs(expandPath(path))
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return abs, nil
}
