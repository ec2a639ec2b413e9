package streamtypes

import (
	"encoding/json"
	"fmt"
)

// SecurityMode is orthogonal to ProtocolFamily: it tells whether the
// byte stream goes through TLS.
type SecurityMode int

const (
	SecurityModePlain = SecurityMode(iota)
	SecurityModeTLS
)

func (m SecurityMode) String() string {
	switch m {
	case SecurityModePlain:
		return "plain"
	case SecurityModeTLS:
		return "tls"
	default:
		return fmt.Sprintf("unknown_security_mode_%d", m)
	}
}

func (m SecurityMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}
