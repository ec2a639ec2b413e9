package streamclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"weak"

	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/metrics"
	"github.com/xaionaro-go/streamclient/pkg/player/playerbase"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/protocol"
)

// Handle owns a player. The player may be touched only on its executor
// (see Do); the handle itself may be used from any goroutine.
//
// Release must be the last call on a handle: tasks submitted after it
// by other goroutines are not guaranteed to be ordered before the
// teardown, so they are refused if the release is already visible to
// them and are skipped if they get queued after the teardown.
type Handle struct {
	url               string
	classification    protocol.Classification
	settings          *types.Settings
	executor          weak.Pointer[executor.Executor]
	player            atomic.Pointer[types.Player]
	statsSnapshot     atomic.Pointer[types.Stats]
	listener          atomic.Pointer[types.Listener]
	releaseOnShutdown bool
	isReleased        atomic.Bool
	doneCh            chan struct{}
}

// bind puts the player behind a handle. The handle keeps only a weak
// reference to the executor.
func bind(
	ctx context.Context,
	p types.Player,
	exec *executor.Executor,
	url string,
	classification protocol.Classification,
) *Handle {
	h := &Handle{
		url:            strings.TrimSpace(url),
		classification: classification,
		settings:       p.Settings(),
		executor:       weak.Make(exec),
		doneCh:         make(chan struct{}),
	}
	h.player.Store(&p)
	p.SetListener(handleListener{h})
	logger.Tracef(ctx, "bound %s to %s", classification, exec)
	return h
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s player of '%s'", h.classification, h.url)
}

func (h *Handle) URL() string {
	return h.url
}

func (h *Handle) Classification() protocol.Classification {
	return h.classification
}

// Settings may be changed only before Play.
func (h *Handle) Settings() *types.Settings {
	return h.settings
}

// Executor returns the executor the player is bound to, or nil if it no
// longer exists.
func (h *Handle) Executor() *executor.Executor {
	return h.executor.Value()
}

// Player returns the player, or nil after it was torn down. It may be
// used only on the executor.
func (h *Handle) Player() types.Player {
	p := h.player.Load()
	if p == nil {
		return nil
	}
	return *p
}

// SetListener sets the receiver of the player notifications; it is
// called on the executor.
func (h *Handle) SetListener(l types.Listener) {
	h.listener.Store(&l)
}

// Stats may be called from any goroutine, also after the teardown.
func (h *Handle) Stats() types.Stats {
	if p := h.player.Load(); p != nil {
		return (*p).Stats()
	}
	if stats := h.statsSnapshot.Load(); stats != nil {
		return *stats
	}
	return types.Stats{}
}

// Done is closed once the player is torn down.
func (h *Handle) Done() <-chan struct{} {
	return h.doneCh
}

// Do runs fn with the player on the executor.
func (h *Handle) Do(
	ctx context.Context,
	fn func(ctx context.Context, p types.Player),
) error {
	if h.isReleased.Load() {
		return ErrAlreadyReleased{}
	}
	exec := h.executor.Value()
	if exec == nil {
		return ErrNoExecutor{}
	}
	return exec.Async(ctx, func(ctx context.Context) {
		p := h.Player()
		if p == nil {
			logger.Debugf(ctx, "%s is already torn down, skipping a task", h)
			return
		}
		fn(ctx, p)
	})
}

// Play starts playing url, or the URL the handle was created for if url
// is empty, and waits until the player accepted the request. A player
// that is already playing is left intact and ErrAlreadyPlaying is
// returned; any other failure is reported through Listener.OnPlayResult.
func (h *Handle) Play(ctx context.Context, url string) (_err error) {
	url = strings.TrimSpace(url)
	if url == "" {
		url = h.url
	}
	logger.Debugf(ctx, "Play(ctx, '%s'): %s", url, h)
	defer func() { logger.Debugf(ctx, "/Play(ctx, '%s'): %s: %v", url, h, _err) }()

	if h.isReleased.Load() {
		return ErrAlreadyReleased{}
	}
	exec := h.executor.Value()
	if exec == nil {
		return ErrNoExecutor{}
	}

	var errPlay error
	err := exec.Sync(ctx, func(ctx context.Context) {
		p := h.Player()
		if p == nil {
			errPlay = ErrAlreadyReleased{}
			return
		}
		err := p.Play(ctx, url)
		switch {
		case err == nil:
		case errors.As(err, &playerbase.ErrAlreadyPlaying{}):
			errPlay = err
		default:
			handleListener{h}.OnPlayResult(ctx, err)
		}
	})
	if err != nil {
		return err
	}
	return errPlay
}

// Release destroys the player. If the executor is alive, the teardown
// is queued on it after everything queued so far and Release returns
// immediately. Otherwise the player is torn down right here.
func (h *Handle) Release(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Release(ctx): %s", h)
	defer func() { logger.Debugf(ctx, "/Release(ctx): %s: %v", h, _err) }()

	if !h.isReleased.CompareAndSwap(false, true) {
		return ErrAlreadyReleased{}
	}

	if exec := h.executor.Value(); exec != nil {
		err := exec.Async(ctx, func(ctx context.Context) {
			h.teardown(ctx, metrics.TeardownPathExecutor)
		})
		if err == nil {
			return nil
		}
		logger.Debugf(ctx, "unable to queue the teardown of %s: %v; tearing down directly", h, err)
	}

	h.teardown(ctx, metrics.TeardownPathDirect)
	return nil
}

// teardown is reached once per handle, guarded by isReleased.
func (h *Handle) teardown(ctx context.Context, path string) {
	p := h.player.Load()
	if p == nil {
		return
	}
	defer close(h.doneCh)
	defer metrics.Teardowns.WithLabelValues(path).Inc()

	if err := (*p).Teardown(ctx); err != nil {
		errmon.ObserveErrorCtx(ctx, fmt.Errorf("unable to tear down %s: %w", h, err))
	}

	stats := (*p).Stats()
	h.statsSnapshot.Store(&stats)
	h.player.Store(nil)
}

// handleListener forwards the player notifications to the listener of
// the handle and implements ReleaseOnShutdown.
type handleListener struct {
	h *Handle
}

var _ types.Listener = handleListener{}

func (l handleListener) userListener() types.Listener {
	ptr := l.h.listener.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

func (l handleListener) OnPlayResult(ctx context.Context, err error) {
	if userListener := l.userListener(); userListener != nil {
		userListener.OnPlayResult(ctx, err)
	}
	if err != nil {
		l.releaseOnShutdown(ctx)
	}
}

func (l handleListener) OnShutdown(ctx context.Context, err error) {
	if userListener := l.userListener(); userListener != nil {
		userListener.OnShutdown(ctx, err)
	}
	l.releaseOnShutdown(ctx)
}

func (l handleListener) releaseOnShutdown(ctx context.Context) {
	if !l.h.releaseOnShutdown {
		return
	}
	if err := l.h.Release(ctx); err != nil {
		logger.Debugf(ctx, "%s: %v", l.h, err)
	}
}
