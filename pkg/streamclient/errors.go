package streamclient

import (
	"fmt"

	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

// ErrConstruction is a failure to build a player for an otherwise
// valid URL, e.g. because no executor is available.
type ErrConstruction struct {
	Family streamtypes.ProtocolFamily
	Err    error
}

func (e ErrConstruction) Error() string {
	return fmt.Sprintf("unable to construct a %s player: %v", e.Family, e.Err)
}

func (e ErrConstruction) Unwrap() error {
	return e.Err
}

type ErrAlreadyReleased struct{}

func (ErrAlreadyReleased) Error() string {
	return "the player handle is already released"
}

type ErrNoExecutor struct{}

func (ErrNoExecutor) Error() string {
	return "the executor of the player no longer exists"
}
