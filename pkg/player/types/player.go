package types

import (
	"context"
	"time"

	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

// Player is a protocol-specific client session. Except for Stats, all
// of its methods must be called only from the executor it is bound to.
type Player interface {
	Family() streamtypes.ProtocolFamily
	Settings() *Settings
	SetListener(Listener)

	// Play starts connecting to the URL and returns immediately; the
	// outcome is reported through Listener.OnPlayResult.
	Play(ctx context.Context, url string) error

	// Teardown closes sockets and cancels timers. After it returns the
	// player reports nothing anymore.
	Teardown(ctx context.Context) error

	Stats() Stats
}

// Listener receives the player's notifications; it is always called on
// the player's executor.
type Listener interface {
	// OnPlayResult is called exactly once per Play.
	OnPlayResult(ctx context.Context, err error)

	// OnShutdown is called when a successfully started session ends.
	OnShutdown(ctx context.Context, err error)
}

type ListenerFuncs struct {
	PlayResult func(ctx context.Context, err error)
	Shutdown   func(ctx context.Context, err error)
}

var _ Listener = ListenerFuncs{}

func (l ListenerFuncs) OnPlayResult(ctx context.Context, err error) {
	if l.PlayResult != nil {
		l.PlayResult(ctx, err)
	}
}

func (l ListenerFuncs) OnShutdown(ctx context.Context, err error) {
	if l.Shutdown != nil {
		l.Shutdown(ctx, err)
	}
}

type Stats struct {
	BytesReceived uint64
	MediaUnits    uint64
	LastMediaAt   time.Time
}
