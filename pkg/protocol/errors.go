package protocol

import (
	"fmt"

	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

type ErrInvalidURL struct {
	URL string
}

func (e ErrInvalidURL) Error() string {
	return fmt.Sprintf("invalid url: '%s'", e.URL)
}

// ErrUnsupportedProtocol carries the input exactly as it was given.
type ErrUnsupportedProtocol struct {
	URL    string
	Scheme string
}

func (e ErrUnsupportedProtocol) Error() string {
	if e.Scheme == "" {
		return fmt.Sprintf("not supported play schema: '%s'", e.URL)
	}
	return fmt.Sprintf("not supported play schema '%s': '%s'", e.Scheme, e.URL)
}

type ErrNotRegistered struct {
	Family streamtypes.ProtocolFamily
}

func (e ErrNotRegistered) Error() string {
	return fmt.Sprintf("protocol family '%s' is not registered", e.Family)
}
