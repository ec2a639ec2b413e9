package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/xaionaro-go/secret"
)

type SettingKey string

const (
	SettingConnectTimeout SettingKey = "protocol_timeout_ms"
	SettingMediaTimeout   SettingKey = "media_timeout_ms"
	SettingBeatInterval   SettingKey = "beat_interval_ms"
	SettingWaitTrackReady SettingKey = "wait_track_ready"
	SettingLatency        SettingKey = "latency"
	SettingPassphrase     SettingKey = "passphrase"
)

type settingKind int

const (
	settingKindAny = settingKind(iota)
	settingKindDuration
	settingKindBool
	settingKindSecret
)

var knownSettings = map[SettingKey]settingKind{
	SettingConnectTimeout: settingKindDuration,
	SettingMediaTimeout:   settingKindDuration,
	SettingBeatInterval:   settingKindDuration,
	SettingWaitTrackReady: settingKindBool,
	SettingLatency:        settingKindDuration,
	SettingPassphrase:     settingKindSecret,
}

// Settings is an ordered key-value map of player configuration. It is
// seeded before a player is handed out, may be changed before Play, and
// must not be changed afterwards.
type Settings struct {
	keys   []SettingKey
	values map[SettingKey]any
}

func NewSettings() *Settings {
	return &Settings{
		values: map[SettingKey]any{},
	}
}

var DefaultSettings = func() *Settings {
	s := NewSettings()
	s.Set(SettingConnectTimeout, 10*time.Second)
	s.Set(SettingMediaTimeout, 5*time.Second)
	s.Set(SettingBeatInterval, 5*time.Second)
	s.Set(SettingWaitTrackReady, true)
	s.Set(SettingLatency, time.Duration(0))
	s.Set(SettingPassphrase, secret.New(""))
	return s
}

// Set stores the value; a new key goes to the end, an existing key
// keeps its position.
func (s *Settings) Set(key SettingKey, value any) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *Settings) Get(key SettingKey) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Settings) Keys() []SettingKey {
	return slices.Clone(s.keys)
}

func (s *Settings) Len() int {
	return len(s.keys)
}

func (s *Settings) Clone() *Settings {
	r := NewSettings()
	for _, k := range s.keys {
		r.Set(k, s.values[k])
	}
	return r
}

// Merge copies all values of other into s.
func (s *Settings) Merge(other *Settings) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		s.Set(k, other.values[k])
	}
}

// Duration interprets the value as a duration; plain numbers are
// milliseconds.
func (s *Settings) Duration(key SettingKey) time.Duration {
	v, ok := s.values[key]
	if !ok {
		return 0
	}
	d, _ := toDuration(v)
	return d
}

func (s *Settings) Bool(key SettingKey) bool {
	v, ok := s.values[key]
	if !ok {
		return false
	}
	b, _ := toBool(v)
	return b
}

func (s *Settings) String(key SettingKey) string {
	v, ok := s.values[key]
	if !ok {
		return ""
	}
	switch v := v.(type) {
	case string:
		return v
	case secret.Any[string]:
		return v.Get()
	default:
		return fmt.Sprint(v)
	}
}

func (s *Settings) ConnectTimeout() time.Duration {
	return s.Duration(SettingConnectTimeout)
}

func (s *Settings) MediaTimeout() time.Duration {
	return s.Duration(SettingMediaTimeout)
}

func (s *Settings) BeatInterval() time.Duration {
	return s.Duration(SettingBeatInterval)
}

func (s *Settings) WaitTrackReady() bool {
	return s.Bool(SettingWaitTrackReady)
}

func (s *Settings) Latency() time.Duration {
	return s.Duration(SettingLatency)
}

func (s *Settings) Passphrase() string {
	return s.String(SettingPassphrase)
}

func toDuration(v any) (time.Duration, bool) {
	switch v := v.(type) {
	case time.Duration:
		return v, true
	case string:
		if ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond, true
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		return d, err == nil
	}
	ms, ok := toInt64(v)
	return time.Duration(ms) * time.Millisecond, ok
}

func toBool(v any) (bool, bool) {
	switch v := v.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	}
	i, ok := toInt64(v)
	return i != 0, ok
}

func toInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

var _ yaml.BytesMarshaler = (*Settings)(nil)
var _ yaml.BytesUnmarshaler = (*Settings)(nil)

func (s *Settings) MarshalYAML() ([]byte, error) {
	m := make(yaml.MapSlice, 0, len(s.keys))
	for _, k := range s.keys {
		var v any
		switch value := s.values[k].(type) {
		case time.Duration:
			v = value.Milliseconds()
		case secret.Any[string]:
			v = value.Get()
		default:
			v = value
		}
		m = append(m, yaml.MapItem{Key: string(k), Value: v})
	}
	b, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize the settings: %w", err)
	}
	return b, nil
}

func (s *Settings) UnmarshalYAML(b []byte) error {
	var m yaml.MapSlice
	if err := yaml.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("unable to unserialize the settings: %w", err)
	}

	if s.values == nil {
		s.values = map[SettingKey]any{}
	}
	for _, item := range m {
		key := SettingKey(fmt.Sprint(item.Key))
		switch knownSettings[key] {
		case settingKindDuration:
			d, ok := toDuration(item.Value)
			if !ok {
				return fmt.Errorf("unable to interpret '%v' as a duration for key '%s'", item.Value, key)
			}
			s.Set(key, d)
		case settingKindBool:
			v, ok := toBool(item.Value)
			if !ok {
				return fmt.Errorf("unable to interpret '%v' as a boolean for key '%s'", item.Value, key)
			}
			s.Set(key, v)
		case settingKindSecret:
			var str string
			if item.Value != nil {
				str = fmt.Sprint(item.Value)
			}
			s.Set(key, secret.New(str))
		default:
			s.Set(key, item.Value)
		}
	}
	return nil
}
