// Package config is the configuration file of the streamplay tool.
package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/protocol"
	"github.com/xaionaro-go/streamclient/pkg/streamclient"
)

type TLSConfig struct {
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	ServerName         string `yaml:"server_name"`
}

type config struct {
	// Executors is the size of the executor pool; zero means one
	// executor per CPU.
	Executors         int             `yaml:"executors"`
	TLS               TLSConfig       `yaml:"tls"`
	ReleaseOnShutdown bool            `yaml:"release_on_shutdown"`
	Settings          *types.Settings `yaml:"settings"`
}

type Config config

func NewConfig() Config {
	return Config{
		ReleaseOnShutdown: true,
		Settings:          types.DefaultSettings(),
	}
}

// TLSClientConfig returns nil if nothing is customized, which means the
// default TLS configuration.
func (cfg Config) TLSClientConfig() *tls.Config {
	if cfg.TLS == (TLSConfig{}) {
		return nil
	}
	return &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
		ServerName:         cfg.TLS.ServerName,
	}
}

// SecretWords makes the config a source of values to be hidden from
// the logs.
func (cfg Config) SecretWords() []string {
	if cfg.Settings == nil {
		return nil
	}
	if passphrase := cfg.Settings.Passphrase(); passphrase != "" {
		return []string{passphrase}
	}
	return nil
}

// NewFactory creates a player factory with its own executor pool; the
// pool is to be closed by the caller.
func (cfg Config) NewFactory(
	ctx context.Context,
	registry *protocol.Registry,
) *streamclient.Factory {
	f := streamclient.NewFactory(registry, executor.NewPool(ctx, "streamplay", cfg.Executors))
	f.TLSConfig = cfg.TLSClientConfig()
	f.ReleaseOnShutdown = cfg.ReleaseOnShutdown
	if cfg.Settings != nil {
		f.Options = types.Options{types.OptionSettings{Settings: cfg.Settings}}
	}
	return f
}

func ReadConfigFromPath(
	ctx context.Context,
	cfgPath string,
	cfg *Config,
) error {
	b, err := os.ReadFile(cfgPath)
	if err != nil {
		return fmt.Errorf("unable to read file '%s': %w", cfgPath, err)
	}

	_, err = cfg.Read(b)
	return err
}

// ReadConfigFile returns the default configuration if there is no file
// at cfgPath.
func ReadConfigFile(
	ctx context.Context,
	cfgPath string,
) (*Config, error) {
	_, err := os.Stat(cfgPath)
	switch {
	case err == nil:
		cfg := NewConfig()
		if err := ReadConfigFromPath(ctx, cfgPath, &cfg); err != nil {
			return nil, fmt.Errorf("unable to read the config from path '%s': %w", cfgPath, err)
		}
		return &cfg, nil
	case os.IsNotExist(err):
		logger.Debugf(ctx, "cannot find file '%s', using the defaults", cfgPath)
		cfg := NewConfig()
		return &cfg, nil
	default:
		return nil, fmt.Errorf("unable to access file '%s': %w", cfgPath, err)
	}
}

func WriteConfigToPath(
	ctx context.Context,
	cfgPath string,
	cfg Config,
) error {
	pathNew := cfgPath + ".new"
	f, err := os.OpenFile(pathNew, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0640)
	if err != nil {
		return fmt.Errorf("unable to open the config file '%s': %w", pathNew, err)
	}
	_, err = cfg.WriteTo(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("unable to write the config to file '%s': %w", pathNew, err)
	}
	if err := os.Rename(pathNew, cfgPath); err != nil {
		return fmt.Errorf("cannot move '%s' to '%s': %w", pathNew, cfgPath, err)
	}
	logger.Infof(ctx, "wrote the config to '%s'", cfgPath)
	return nil
}
