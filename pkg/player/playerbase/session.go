package playerbase

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/transport"
)

// Session is a single Play attempt. Its methods are safe to call from
// the session goroutine.
type Session struct {
	URL string

	common         *Common
	settings       *types.Settings
	dialer         transport.Dialer
	tlsConfig      *tls.Config
	httpClientOnce sync.Once
	httpClient     *http.Client
	waitTrackReady bool
	connectTimeout time.Duration
	mediaTimeout   time.Duration
	beatInterval   time.Duration

	startedAt      time.Time
	cancelFn       context.CancelCauseFunc
	isConnected    atomic.Bool
	isResultSent   atomic.Bool
	isTornDown     atomic.Bool
	isEnded        atomic.Bool
	lastActivityAt atomic.Int64
	doneCh         chan struct{}
}

func newSession(
	c *Common,
	url string,
) *Session {
	return &Session{
		URL:            url,
		common:         c,
		doneCh:         make(chan struct{}),
		settings:       c.settings.Clone(),
		dialer:         c.dialer,
		tlsConfig:      c.tls,
		waitTrackReady: c.settings.WaitTrackReady(),
		connectTimeout: c.settings.ConnectTimeout(),
		mediaTimeout:   c.settings.MediaTimeout(),
		beatInterval:   c.settings.BeatInterval(),
	}
}

// Settings is the snapshot of the player settings taken on Play.
func (s *Session) Settings() *types.Settings {
	return s.settings
}

func (s *Session) Dialer() transport.Dialer {
	return s.dialer
}

func (s *Session) start(
	ctx context.Context,
	fn SessionFunc,
) {
	// only the logger and the other belt tools are carried over: the
	// session outlives the Play call, and the executor must not be
	// reachable from it
	ctx = belt.CtxWithBelt(context.Background(), belt.CtxBelt(ctx))
	ctx, s.cancelFn = context.WithCancelCause(ctx)
	s.startedAt = time.Now()
	s.lastActivityAt.Store(s.startedAt.UnixNano())

	observability.Go(ctx, func(ctx context.Context) {
		defer close(s.doneCh)
		err := fn(ctx, s)
		if cause := context.Cause(ctx); cause != nil {
			err = cause
		}
		logger.Debugf(ctx, "session of %s ended: %v", s.common, err)
		s.isEnded.Store(true)
		s.finish(ctx, err)
		s.cancelFn(err)
		if s.httpClient != nil {
			s.httpClient.CloseIdleConnections()
		}
	})
	observability.Go(ctx, func(ctx context.Context) {
		s.watchdog(ctx)
	})
}

// Connected is to be called once the protocol handshake succeeded.
func (s *Session) Connected(ctx context.Context) {
	s.isConnected.Store(true)
	s.touch()
	if !s.waitTrackReady {
		s.reportResult(ctx, nil)
	}
}

// Received accounts bytes read from the network.
func (s *Session) Received(n int) {
	s.common.addBytes(n)
}

// MediaReceived accounts media units (packets, tags, segments). The
// first one completes Play if it was not completed yet.
func (s *Session) MediaReceived(ctx context.Context, units int) {
	s.common.addMedia(units)
	s.touch()
	s.reportResult(ctx, nil)
}

// Fail ends the session with the given error.
func (s *Session) Fail(err error) {
	s.cancelFn(err)
}

func (s *Session) touch() {
	s.lastActivityAt.Store(time.Now().UnixNano())
}

func (s *Session) reportResult(ctx context.Context, err error) {
	if !s.isResultSent.CompareAndSwap(false, true) {
		return
	}
	logger.Debugf(ctx, "play result of %s: %v", s.common, err)
	s.post(ctx, func(ctx context.Context) {
		if l := s.common.listener; l != nil {
			l.OnPlayResult(ctx, err)
		}
	})
}

func (s *Session) finish(ctx context.Context, err error) {
	if err == nil {
		err = fmt.Errorf("the stream ended")
	}
	if !s.isResultSent.Load() {
		s.reportResult(ctx, err)
		return
	}
	s.post(ctx, func(ctx context.Context) {
		if l := s.common.listener; l != nil {
			l.OnShutdown(ctx, err)
		}
	})
}

func (s *Session) post(ctx context.Context, fn func(ctx context.Context)) {
	if s.isTornDown.Load() {
		return
	}
	exec := s.common.Executor()
	if exec == nil {
		logger.Debugf(ctx, "the executor of %s is gone, dropping an event", s.common)
		return
	}
	err := exec.Async(ctx, func(ctx context.Context) {
		if s.isTornDown.Load() {
			return
		}
		fn(ctx)
	})
	if err != nil {
		logger.Debugf(ctx, "unable to deliver an event of %s: %v", s.common, err)
	}
}

func (s *Session) watchdog(ctx context.Context) {
	interval := s.beatInterval
	if interval <= 0 {
		interval = time.Second
	}
	if s.connectTimeout > 0 && s.connectTimeout < interval {
		interval = s.connectTimeout
	}
	if s.mediaTimeout > 0 && s.mediaTimeout < interval {
		interval = s.mediaTimeout
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if err := s.check(now); err != nil {
				logger.Debugf(ctx, "watchdog of %s: %v", s.common, err)
				s.cancelFn(err)
				return
			}
		}
	}
}

func (s *Session) check(now time.Time) error {
	if !s.isResultSent.Load() {
		if s.connectTimeout > 0 && now.Sub(s.startedAt) >= s.connectTimeout {
			return ErrConnectTimeout{Timeout: s.connectTimeout}
		}
		return nil
	}
	if s.mediaTimeout > 0 {
		lastActivity := time.Unix(0, s.lastActivityAt.Load())
		if now.Sub(lastActivity) >= s.mediaTimeout {
			return ErrMediaTimeout{Timeout: s.mediaTimeout}
		}
	}
	return nil
}

// teardown cancels the session without waiting for its goroutine:
// a session function stuck in a blocking call must not block the
// executor. Nothing is reported after teardown.
func (s *Session) teardown(ctx context.Context) {
	if !s.isTornDown.CompareAndSwap(false, true) {
		return
	}
	s.cancelFn(ErrTornDown{})
	logger.Debugf(ctx, "the session of %s is cancelled", s.common)
}

// Done is closed once the session function returned.
func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}

// IsTornDown reports whether err is the cause the session was stopped
// with on teardown.
func IsTornDown(err error) bool {
	return errors.As(err, &ErrTornDown{})
}
