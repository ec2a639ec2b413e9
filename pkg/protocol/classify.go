package protocol

import (
	"strings"

	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

type Classification struct {
	Family   streamtypes.ProtocolFamily
	Security streamtypes.SecurityMode

	// Scheme is the lower-cased scheme token of the URL.
	Scheme string

	// Path is the trimmed URL without the query component.
	Path string
}

func (c Classification) String() string {
	return c.Family.String() + "/" + c.Security.String()
}

type suffixRule struct {
	Suffix string
	Family streamtypes.ProtocolFamily
}

// httpSuffixRules are checked in order.
var httpSuffixRules = []suffixRule{
	{Suffix: ".m3u8", Family: streamtypes.ProtocolFamilyHTTPHLS},
	{Suffix: ".ts", Family: streamtypes.ProtocolFamilyHTTPTS},
	{Suffix: ".flv", Family: streamtypes.ProtocolFamilyHTTPFLV},
}

// Classify resolves the protocol family and the security mode of a
// stream URL. It does no I/O and has no state.
func Classify(url string) (Classification, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return Classification{}, ErrInvalidURL{URL: url}
	}

	var scheme string
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		scheme = strings.ToLower(trimmed[:idx])
	}
	path := trimmed
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}

	result := Classification{
		Security: streamtypes.SecurityModePlain,
		Scheme:   scheme,
		Path:     path,
	}
	switch scheme {
	case "rtsp", "rtsps":
		result.Family = streamtypes.ProtocolFamilyRTSP
	case "rtmp", "rtmps":
		result.Family = streamtypes.ProtocolFamilyRTMP
	case "srt":
		result.Family = streamtypes.ProtocolFamilySRT
		return result, nil
	case "http", "https":
		family, ok := classifyHTTP(path, trimmed)
		if !ok {
			return Classification{}, ErrUnsupportedProtocol{URL: url, Scheme: scheme}
		}
		result.Family = family
	default:
		return Classification{}, ErrUnsupportedProtocol{URL: url, Scheme: scheme}
	}

	if strings.HasSuffix(scheme, "s") {
		result.Security = streamtypes.SecurityModeTLS
	}
	return result, nil
}

// classifyHTTP checks the query-stripped path first, so that the real
// file extension wins over anything found in the query.
func classifyHTTP(path, raw string) (streamtypes.ProtocolFamily, bool) {
	for _, candidate := range []string{path, raw} {
		candidate = strings.ToLower(candidate)
		for _, rule := range httpSuffixRules {
			if strings.HasSuffix(candidate, rule.Suffix) {
				return rule.Family, true
			}
		}
	}
	return streamtypes.UndefinedProtocolFamily, false
}
