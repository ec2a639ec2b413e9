package executor

import (
	"fmt"
)

type ErrClosed struct {
	Name string
}

func (e ErrClosed) Error() string {
	return fmt.Sprintf("executor '%s' is closed", e.Name)
}

type ErrPoolClosed struct{}

func (ErrPoolClosed) Error() string {
	return "executor pool is closed"
}
