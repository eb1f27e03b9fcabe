package toml

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gotoml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	settings, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, Settings{
		Endpoint:         "ws://127.0.0.1:9944",
		HandshakeTimeout: 10 * time.Second,
		PollInterval:     time.Second,
		RetryDelay:       5 * time.Second,
		LogLevel:         "info",
	}, settings)
}

func TestLoadReadsConfigFileFromHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, filepath.Join(home, ".lightnode", "config.toml"), `version = 1

[chain]
genesis = "/etc/lightnode/genesis.json"
bootnode = "/ip4/1.2.3.4/tcp/30333"

[supervisor]
poll_interval = "2s"
retry_delay = "250ms"

[metrics]
addr = "127.0.0.1:9615"
`)

	settings, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "/etc/lightnode/genesis.json", settings.Genesis)
	assert.Equal(t, "/ip4/1.2.3.4/tcp/30333", settings.BootNode)
	assert.Equal(t, 2*time.Second, settings.PollInterval)
	assert.Equal(t, 250*time.Millisecond, settings.RetryDelay)
	assert.Equal(t, "127.0.0.1:9615", settings.MetricsAddr)
	assert.Equal(t, filepath.Join(home, ".lightnode", "config.toml"), settings.ConfigFile)
}

func TestLoadPrefersExplicitValuesAndEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LIGHTNODE_ENGINE_ENDPOINT", "wss://rpc.example.org")

	configPath := filepath.Join(t.TempDir(), "custom.toml")
	writeConfig(t, configPath, `[chain]
genesis = "from-file.json"
bootnode = "/ip4/5.6.7.8/tcp/30333"
`)

	cfg := viper.New()
	cfg.Set(KeyConfig, configPath)
	cfg.Set(KeyGenesis, "from-flag.json")

	settings, err := Load(cfg)
	require.NoError(t, err)

	assert.Equal(t, "from-flag.json", settings.Genesis)
	assert.Equal(t, "/ip4/5.6.7.8/tcp/30333", settings.BootNode)
	assert.Equal(t, "wss://rpc.example.org", settings.Endpoint)
	assert.Equal(t, configPath, settings.ConfigFile)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{name: "future schema version", config: "version = 2\n", wantErr: "unsupported config schema version 2 (current 1)"},
		{name: "unparsable duration", config: "[supervisor]\npoll_interval = \"soon\"\n", wantErr: "parse supervisor.poll_interval"},
		{name: "non-positive retry delay", config: "[supervisor]\nretry_delay = \"0s\"\n", wantErr: "supervisor.retry_delay must be positive"},
		{name: "broken toml", config: "[chain\n", wantErr: "read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			t.Setenv("HOME", home)
			writeConfig(t, filepath.Join(home, ".lightnode", "config.toml"), tt.config)

			_, err := Load(viper.New())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFailsOnMissingExplicitConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := viper.New()
	cfg.Set(KeyConfig, filepath.Join(t.TempDir(), "missing.toml"))

	_, err := Load(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.toml")
}

func TestWriteDefaultRoundTripsThroughLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultPath()
	require.NoError(t, err)
	require.NoError(t, WriteDefault(path, false))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(configFileMode), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded fileSchema
	require.NoError(t, gotoml.Unmarshal(data, &decoded))
	assert.Equal(t, defaultSchema(), decoded)

	settings, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, settings.RetryDelay)
	assert.Equal(t, path, settings.ConfigFile)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".config-*.toml.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriteDefaultRefusesToOverwriteWithoutForce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "version = 1\n[log]\nlevel = \"debug\"\n")

	err := WriteDefault(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, WriteDefault(path, true))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "debug")
	assert.Contains(t, string(data), "info")
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
