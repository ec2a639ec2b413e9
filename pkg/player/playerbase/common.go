// Package playerbase contains the machinery shared by all protocol
// players: settings, the dialer hook, the session goroutine with its
// watchdog, and delivery of listener events onto the executor.
package playerbase

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync/atomic"
	"time"
	"weak"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
	"github.com/xaionaro-go/streamclient/pkg/transport"
)

// Common is embedded by every protocol player. Its fields are accessed
// from the executor only, except for the statistics.
type Common struct {
	family   streamtypes.ProtocolFamily
	settings *types.Settings
	executor weak.Pointer[executor.Executor]
	dialer   transport.Dialer
	tls      *tls.Config
	listener types.Listener
	session  *Session

	lastSession *Session

	bytesReceived atomic.Uint64
	mediaUnits    atomic.Uint64
	lastMediaAt   atomic.Int64
}

func NewCommon(
	family streamtypes.ProtocolFamily,
	exec *executor.Executor,
) Common {
	return Common{
		family:   family,
		settings: types.DefaultSettings(),
		executor: weak.Make(exec),
		dialer:   transport.NewNetDialer(),
	}
}

func (c *Common) Family() streamtypes.ProtocolFamily {
	return c.family
}

func (c *Common) Settings() *types.Settings {
	return c.settings
}

func (c *Common) SetListener(l types.Listener) {
	c.listener = l
}

func (c *Common) Dialer() transport.Dialer {
	return c.dialer
}

func (c *Common) SetDialer(d transport.Dialer) {
	c.dialer = d
}

// Executor returns the executor the player is bound to, or nil if it
// no longer exists.
func (c *Common) Executor() *executor.Executor {
	return c.executor.Value()
}

func (c *Common) Stats() types.Stats {
	s := types.Stats{
		BytesReceived: c.bytesReceived.Load(),
		MediaUnits:    c.mediaUnits.Load(),
	}
	if ts := c.lastMediaAt.Load(); ts != 0 {
		s.LastMediaAt = time.Unix(0, ts)
	}
	return s
}

// IsPlaying reports whether a session was started and neither ended
// nor was torn down yet.
func (c *Common) IsPlaying() bool {
	return c.session != nil && !c.session.isTornDown.Load() && !c.session.isEnded.Load()
}

// SessionFunc is the protocol-specific part of a session. It runs on its
// own goroutine, must return once ctx is cancelled, and reports progress
// through the Session.
type SessionFunc func(ctx context.Context, s *Session) error

// StartSession launches the session goroutine and its watchdog. It must
// be called on the executor.
func (c *Common) StartSession(
	ctx context.Context,
	url string,
	fn SessionFunc,
) (_err error) {
	logger.Debugf(ctx, "StartSession(ctx, '%s'): %s", url, c.family)
	defer func() { logger.Debugf(ctx, "/StartSession(ctx, '%s'): %s: %v", url, c.family, _err) }()

	if c.IsPlaying() {
		return ErrAlreadyPlaying{}
	}
	if c.Executor() == nil {
		return ErrNoExecutor{}
	}

	if prev := c.session; prev != nil {
		prev.teardown(ctx)
	}

	s := newSession(c, url)
	c.session = s
	s.start(ctx, fn)
	return nil
}

// TeardownSession cancels the current session, if any, and returns
// without waiting for it: the session closes its sockets on its own.
// No listener events are delivered afterwards.
func (c *Common) TeardownSession(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "TeardownSession(ctx): %s", c.family)
	defer func() { logger.Debugf(ctx, "/TeardownSession(ctx): %s: %v", c.family, _err) }()

	s := c.session
	if s == nil {
		return nil
	}
	c.session = nil
	c.lastSession = s
	s.teardown(ctx)
	return nil
}

// SessionDone is closed once the goroutine of the latest session
// (current or torn down) returned; nil if no session was started.
func (c *Common) SessionDone() <-chan struct{} {
	s := c.session
	if s == nil {
		s = c.lastSession
	}
	if s == nil {
		return nil
	}
	return s.Done()
}

func (c *Common) addBytes(n int) {
	c.bytesReceived.Add(uint64(n))
}

func (c *Common) addMedia(units int) {
	c.mediaUnits.Add(uint64(units))
	c.lastMediaAt.Store(time.Now().UnixNano())
}

func (c *Common) String() string {
	return fmt.Sprintf("%s player", c.family)
}
