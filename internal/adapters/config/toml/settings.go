package toml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName      = "config"
	configType      = "toml"
	configDir       = ".lightnode"
	configFile      = "config.toml"
	configFileMode  = 0o600
	configDirMode   = 0o700
	envPrefix       = "LIGHTNODE"
	tempFilePattern = ".config-*.toml.tmp"
)

const (
	KeyConfig           = "config"
	KeyVersion          = "version"
	KeyGenesis          = "chain.genesis"
	KeyBootNode         = "chain.bootnode"
	KeyEndpoint         = "engine.endpoint"
	KeyHandshakeTimeout = "engine.handshake_timeout"
	KeyPollInterval     = "supervisor.poll_interval"
	KeyRetryDelay       = "supervisor.retry_delay"
	KeyLogLevel         = "log.level"
	KeyLogFile          = "log.file"
	KeyMetricsAddr      = "metrics.addr"
)

const (
	defaultEndpoint         = "ws://127.0.0.1:9944"
	defaultHandshakeTimeout = 10 * time.Second
	defaultPollInterval     = time.Second
	defaultRetryDelay       = 5 * time.Second
	defaultLogLevel         = "info"
)

type Settings struct {
	Genesis          string
	BootNode         string
	Endpoint         string
	HandshakeTimeout time.Duration
	PollInterval     time.Duration
	RetryDelay       time.Duration
	LogLevel         string
	LogFile          string
	MetricsAddr      string
	// ConfigFile is the file the settings were read from, empty when none.
	ConfigFile string
}

// DefaultPath is $HOME/.lightnode/config.toml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(homeDir, configDir, configFile), nil
}

// Load resolves settings from flags bound on cfg, LIGHTNODE_* environment
// variables, the config file and defaults, in that order. A missing config
// file is not an error.
func Load(cfg *viper.Viper) (Settings, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	setDefaults(cfg)
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if err := readConfigFile(cfg); err != nil {
		return Settings{}, err
	}
	if err := validateVersion(cfg.GetInt(KeyVersion)); err != nil {
		return Settings{}, err
	}

	settings := Settings{
		Genesis:     strings.TrimSpace(cfg.GetString(KeyGenesis)),
		BootNode:    strings.TrimSpace(cfg.GetString(KeyBootNode)),
		Endpoint:    strings.TrimSpace(cfg.GetString(KeyEndpoint)),
		LogLevel:    strings.TrimSpace(cfg.GetString(KeyLogLevel)),
		LogFile:     strings.TrimSpace(cfg.GetString(KeyLogFile)),
		MetricsAddr: strings.TrimSpace(cfg.GetString(KeyMetricsAddr)),
		ConfigFile:  cfg.ConfigFileUsed(),
	}

	var err error
	if settings.HandshakeTimeout, err = positiveDuration(cfg, KeyHandshakeTimeout); err != nil {
		return Settings{}, err
	}
	if settings.PollInterval, err = positiveDuration(cfg, KeyPollInterval); err != nil {
		return Settings{}, err
	}
	if settings.RetryDelay, err = positiveDuration(cfg, KeyRetryDelay); err != nil {
		return Settings{}, err
	}
	if settings.Endpoint == "" {
		return Settings{}, errors.New("engine endpoint is empty")
	}

	return settings, nil
}

// WriteDefault writes a config file holding the default settings. An existing
// file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	path = filepath.Clean(path)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat config file: %w", err)
		}
	}

	file := defaultSchema()
	file.applyDefaults()

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode config file: %w", err)
	}

	return writeAtomic(path, data)
}

func setDefaults(cfg *viper.Viper) {
	cfg.SetDefault(KeyVersion, currentSchemaVersion)
	cfg.SetDefault(KeyEndpoint, defaultEndpoint)
	cfg.SetDefault(KeyHandshakeTimeout, defaultHandshakeTimeout.String())
	cfg.SetDefault(KeyPollInterval, defaultPollInterval.String())
	cfg.SetDefault(KeyRetryDelay, defaultRetryDelay.String())
	cfg.SetDefault(KeyLogLevel, defaultLogLevel)
}

func readConfigFile(cfg *viper.Viper) error {
	if explicit := strings.TrimSpace(cfg.GetString(KeyConfig)); explicit != "" {
		cfg.SetConfigFile(explicit)
		cfg.SetConfigType(configType)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", explicit, err)
		}
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	return nil
}

func positiveDuration(cfg *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(cfg.GetString(key))
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}

	return value, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}

	if err := tempFile.Chmod(configFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}

	cleanup = false
	return nil
}
