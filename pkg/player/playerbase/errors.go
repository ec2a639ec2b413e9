package playerbase

import (
	"fmt"
	"time"
)

type ErrConnectTimeout struct {
	Timeout time.Duration
}

func (e ErrConnectTimeout) Error() string {
	return fmt.Sprintf("the stream did not start within %v", e.Timeout)
}

type ErrMediaTimeout struct {
	Timeout time.Duration
}

func (e ErrMediaTimeout) Error() string {
	return fmt.Sprintf("no media received within %v", e.Timeout)
}

type ErrAlreadyPlaying struct{}

func (ErrAlreadyPlaying) Error() string {
	return "the player is already playing"
}

type ErrTornDown struct{}

func (ErrTornDown) Error() string {
	return "the player was torn down"
}

type ErrNoExecutor struct{}

func (ErrNoExecutor) Error() string {
	return "the executor of the player no longer exists"
}
