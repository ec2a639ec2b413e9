package types

import (
	"time"

	"github.com/xaionaro-go/secret"
)

type Option interface {
	Apply(s *Settings)
}

type Options []Option

func (options Options) Settings() *Settings {
	s := DefaultSettings()
	options.Apply(s)
	return s
}

func (options Options) Apply(s *Settings) {
	for _, option := range options {
		option.Apply(s)
	}
}

type OptionConnectTimeout time.Duration

func (opt OptionConnectTimeout) Apply(s *Settings) {
	s.Set(SettingConnectTimeout, time.Duration(opt))
}

type OptionMediaTimeout time.Duration

func (opt OptionMediaTimeout) Apply(s *Settings) {
	s.Set(SettingMediaTimeout, time.Duration(opt))
}

type OptionBeatInterval time.Duration

func (opt OptionBeatInterval) Apply(s *Settings) {
	s.Set(SettingBeatInterval, time.Duration(opt))
}

type OptionWaitTrackReady bool

func (opt OptionWaitTrackReady) Apply(s *Settings) {
	s.Set(SettingWaitTrackReady, bool(opt))
}

type OptionLatency time.Duration

func (opt OptionLatency) Apply(s *Settings) {
	s.Set(SettingLatency, time.Duration(opt))
}

type OptionPassphrase string

func (opt OptionPassphrase) Apply(s *Settings) {
	s.Set(SettingPassphrase, secret.New(string(opt)))
}

// OptionSettings merges a whole settings map, e.g. one read from a
// config file.
type OptionSettings struct {
	Settings *Settings
}

func (opt OptionSettings) Apply(s *Settings) {
	s.Merge(opt.Settings)
}

type OptionCustom struct {
	Key   SettingKey
	Value any
}

func (opt OptionCustom) Apply(s *Settings) {
	s.Set(opt.Key, opt.Value)
}
