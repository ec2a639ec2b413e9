package config

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
)

var _ io.Reader = (*Config)(nil)
var _ io.ReaderFrom = (*Config)(nil)
var _ io.WriterTo = (*Config)(nil)
var _ yaml.BytesUnmarshaler = (*Config)(nil)
var _ yaml.BytesMarshaler = (*Config)(nil)

func (cfg *Config) Read(
	b []byte,
) (int, error) {
	return len(b), cfg.UnmarshalYAML(b)
}

// UnmarshalYAML overlays the settings of the file over the default
// ones, so a partial settings section is fine.
func (cfg *Config) UnmarshalYAML(b []byte) error {
	cfg.Settings = nil
	if err := yaml.Unmarshal(b, (*config)(cfg)); err != nil {
		return fmt.Errorf("unable to unserialize data: %w", err)
	}

	settings := types.DefaultSettings()
	settings.Merge(cfg.Settings)
	cfg.Settings = settings

	if cfg.Executors < 0 {
		return fmt.Errorf("the amount of executors cannot be negative: %d", cfg.Executors)
	}
	return nil
}

func (cfg *Config) ReadFrom(
	r io.Reader,
) (int64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return int64(len(b)), fmt.Errorf("unable to read: %w", err)
	}

	n, err := cfg.Read(b)
	return int64(n), err
}

func (cfg Config) MarshalYAML() ([]byte, error) {
	b, err := yaml.Marshal((config)(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to serialize the config: %w", err)
	}
	return b, nil
}

func (cfg Config) WriteTo(
	w io.Writer,
) (int64, error) {
	b, err := cfg.MarshalYAML()
	if err != nil {
		return 0, err
	}
	counter := datacounter.NewWriterCounter(w)
	_, err = io.Copy(counter, bytes.NewReader(b))
	return int64(counter.Count()), err
}
