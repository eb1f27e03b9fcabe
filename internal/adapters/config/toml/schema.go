package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version    int              `toml:"version"`
	Chain      chainSchema      `toml:"chain"`
	Engine     engineSchema     `toml:"engine"`
	Supervisor supervisorSchema `toml:"supervisor"`
	Log        logSchema        `toml:"log"`
	Metrics    metricsSchema    `toml:"metrics"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func validateVersion(version int) error {
	if version > currentSchemaVersion {
		return fmt.Errorf("unsupported config schema version %d (current %d)", version, currentSchemaVersion)
	}

	return nil
}

type chainSchema struct {
	Genesis  string `toml:"genesis"`
	BootNode string `toml:"bootnode"`
}

type engineSchema struct {
	Endpoint         string `toml:"endpoint"`
	HandshakeTimeout string `toml:"handshake_timeout"`
}

type supervisorSchema struct {
	PollInterval string `toml:"poll_interval"`
	RetryDelay   string `toml:"retry_delay"`
}

type logSchema struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type metricsSchema struct {
	Addr string `toml:"addr"`
}

func defaultSchema() fileSchema {
	return fileSchema{
		Version: currentSchemaVersion,
		Engine: engineSchema{
			Endpoint:         defaultEndpoint,
			HandshakeTimeout: defaultHandshakeTimeout.String(),
		},
		Supervisor: supervisorSchema{
			PollInterval: defaultPollInterval.String(),
			RetryDelay:   defaultRetryDelay.String(),
		},
		Log: logSchema{Level: defaultLogLevel},
	}
}
