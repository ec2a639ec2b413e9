package streamtypes

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

// ProtocolFamily is the transport/application protocol a player implements.
type ProtocolFamily int

const (
	UndefinedProtocolFamily = ProtocolFamily(iota)
	ProtocolFamilyRTSP
	ProtocolFamilyRTMP
	ProtocolFamilyHTTPHLS
	ProtocolFamilyHTTPTS
	ProtocolFamilyHTTPFLV
	ProtocolFamilySRT
	endOfProtocolFamily
)

func AllProtocolFamilies() []ProtocolFamily {
	result := make([]ProtocolFamily, 0, int(endOfProtocolFamily)-1)
	for c := UndefinedProtocolFamily + 1; c < endOfProtocolFamily; c++ {
		result = append(result, c)
	}
	return result
}

func (f ProtocolFamily) String() string {
	switch f {
	case UndefinedProtocolFamily:
		return "<undefined>"
	case ProtocolFamilyRTSP:
		return "rtsp"
	case ProtocolFamilyRTMP:
		return "rtmp"
	case ProtocolFamilyHTTPHLS:
		return "http-hls"
	case ProtocolFamilyHTTPTS:
		return "http-ts"
	case ProtocolFamilyHTTPFLV:
		return "http-flv"
	case ProtocolFamilySRT:
		return "srt"
	default:
		return fmt.Sprintf("unknown_family_%d", f)
	}
}

// IsHTTP reports whether the family is delivered over HTTP(S), which
// means TLS is handled by the HTTP transport itself.
func (f ProtocolFamily) IsHTTP() bool {
	switch f {
	case ProtocolFamilyHTTPHLS, ProtocolFamilyHTTPTS, ProtocolFamilyHTTPFLV:
		return true
	default:
		return false
	}
}

func ParseProtocolFamily(s string) ProtocolFamily {
	s = strings.Trim(strings.ToLower(s), " ")

	for c := UndefinedProtocolFamily; c < endOfProtocolFamily; c++ {
		if c.String() == s {
			return c
		}
	}

	return UndefinedProtocolFamily
}

func (f ProtocolFamily) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *ProtocolFamily) UnmarshalJSON(b []byte) error {
	var s string
	err := json.Unmarshal(b, &s)
	if err != nil {
		return err
	}

	*f = ParseProtocolFamily(s)
	return nil
}

func (f ProtocolFamily) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(f.String())
}

func (f *ProtocolFamily) UnmarshalYAML(b []byte) error {
	var s string
	err := yaml.Unmarshal(b, &s)
	if err != nil {
		return err
	}

	*f = ParseProtocolFamily(s)
	return nil
}
