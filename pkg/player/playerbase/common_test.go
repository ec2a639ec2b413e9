package playerbase

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

type recorder struct {
	playResultCh chan error
	shutdownCh   chan error
}

func newRecorder() *recorder {
	return &recorder{
		playResultCh: make(chan error, 10),
		shutdownCh:   make(chan error, 10),
	}
}

func (r *recorder) listener(t *testing.T, exec *executor.Executor) types.Listener {
	return types.ListenerFuncs{
		PlayResult: func(ctx context.Context, err error) {
			assert.True(t, exec.IsCurrent(ctx))
			r.playResultCh <- err
		},
		Shutdown: func(ctx context.Context, err error) {
			assert.True(t, exec.IsCurrent(ctx))
			r.shutdownCh <- err
		},
	}
}

func wait(t *testing.T, ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timeout")
		return nil
	}
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout")
	}
}

func newTestCommon(t *testing.T, opts ...types.Option) (*Common, *executor.Executor, *recorder) {
	ctx := context.Background()
	exec := executor.New(ctx, t.Name())
	t.Cleanup(func() { _ = exec.Close(ctx) })

	c := NewCommon(streamtypes.ProtocolFamilyRTSP, exec)
	types.Options(opts).Apply(c.Settings())
	rec := newRecorder()
	c.SetListener(rec.listener(t, exec))
	return &c, exec, rec
}

func start(t *testing.T, c *Common, exec *executor.Executor, fn SessionFunc) {
	ctx := context.Background()
	var err error
	require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {
		err = c.StartSession(ctx, "rtsp://127.0.0.1/x", fn)
	}))
	require.NoError(t, err)
}

func TestPlayResultOnConnectWithoutWaitingTracks(t *testing.T) {
	c, exec, rec := newTestCommon(t, types.OptionWaitTrackReady(false))
	start(t, c, exec, func(ctx context.Context, s *Session) error {
		s.Connected(ctx)
		<-ctx.Done()
		return nil
	})
	require.NoError(t, wait(t, rec.playResultCh))
}

func TestPlayResultWaitsForMedia(t *testing.T) {
	c, exec, rec := newTestCommon(t)
	mediaCh := make(chan struct{})
	start(t, c, exec, func(ctx context.Context, s *Session) error {
		s.Connected(ctx)
		<-mediaCh
		s.MediaReceived(ctx, 1)
		<-ctx.Done()
		return nil
	})

	select {
	case <-rec.playResultCh:
		t.Fatal("play result before media")
	case <-time.After(50 * time.Millisecond):
	}
	close(mediaCh)
	require.NoError(t, wait(t, rec.playResultCh))
	assert.Equal(t, uint64(1), c.Stats().MediaUnits)
}

func TestConnectTimeout(t *testing.T) {
	c, exec, rec := newTestCommon(t, types.OptionConnectTimeout(50*time.Millisecond))
	start(t, c, exec, func(ctx context.Context, s *Session) error {
		<-ctx.Done()
		return ctx.Err()
	})
	err := wait(t, rec.playResultCh)
	require.ErrorAs(t, err, &ErrConnectTimeout{})
	assert.Empty(t, rec.shutdownCh)
}

func TestMediaTimeout(t *testing.T) {
	c, exec, rec := newTestCommon(t, types.OptionMediaTimeout(50*time.Millisecond))
	start(t, c, exec, func(ctx context.Context, s *Session) error {
		s.MediaReceived(ctx, 1)
		<-ctx.Done()
		return nil
	})
	require.NoError(t, wait(t, rec.playResultCh))
	require.ErrorAs(t, wait(t, rec.shutdownCh), &ErrMediaTimeout{})
}

func TestSessionErrorBeforeResult(t *testing.T) {
	c, exec, rec := newTestCommon(t)
	start(t, c, exec, func(ctx context.Context, s *Session) error {
		return assert.AnError
	})
	require.ErrorIs(t, wait(t, rec.playResultCh), assert.AnError)
}

func TestTeardownSuppressesEvents(t *testing.T) {
	c, exec, rec := newTestCommon(t)
	ctx := context.Background()
	releaseCh := make(chan struct{})
	start(t, c, exec, func(ctx context.Context, s *Session) error {
		<-ctx.Done()
		<-releaseCh
		s.MediaReceived(ctx, 1)
		return nil
	})

	var (
		err    error
		doneCh <-chan struct{}
	)
	require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {
		close(releaseCh)
		err = c.TeardownSession(ctx)
		doneCh = c.SessionDone()
	}))
	require.NoError(t, err)
	waitClosed(t, doneCh)
	require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {}))
	assert.Empty(t, rec.playResultCh)
	assert.Empty(t, rec.shutdownCh)
	assert.False(t, c.IsPlaying())
}

func TestTeardownDoesNotWaitForStuckSession(t *testing.T) {
	c, exec, rec := newTestCommon(t)
	ctx := context.Background()
	unblockCh := make(chan struct{})
	start(t, c, exec, func(ctx context.Context, s *Session) error {
		// ignores ctx, like a dial without a context
		<-unblockCh
		s.Connected(ctx)
		s.MediaReceived(ctx, 1)
		return nil
	})

	var (
		err    error
		doneCh <-chan struct{}
	)
	startedAt := time.Now()
	require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {
		err = c.TeardownSession(ctx)
		doneCh = c.SessionDone()
	}))
	require.NoError(t, err)
	require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {}))
	assert.Less(t, time.Since(startedAt), time.Second)

	select {
	case <-doneCh:
		t.Fatal("the session is not expected to be finished yet")
	default:
	}

	close(unblockCh)
	waitClosed(t, doneCh)
	require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {}))
	assert.Empty(t, rec.playResultCh)
	assert.Empty(t, rec.shutdownCh)
}

func TestEventsAfterExecutorCollected(t *testing.T) {
	ctx := context.Background()
	unblockCh := make(chan struct{})

	var c Common
	func() {
		exec := executor.New(ctx, t.Name())
		c = NewCommon(streamtypes.ProtocolFamilyRTSP, exec)
		c.SetListener(types.ListenerFuncs{
			PlayResult: func(ctx context.Context, err error) { t.Error("unexpected play result") },
		})
		var err error
		require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {
			err = c.StartSession(ctx, "rtsp://127.0.0.1/x", func(ctx context.Context, s *Session) error {
				<-unblockCh
				s.MediaReceived(ctx, 1)
				return nil
			})
		}))
		require.NoError(t, err)
		require.NoError(t, exec.Close(ctx))
	}()

	// a running session does not keep the executor alive
	require.Eventually(t, func() bool {
		runtime.GC()
		return c.Executor() == nil
	}, 5*time.Second, 10*time.Millisecond)

	doneCh := c.SessionDone()
	close(unblockCh)
	waitClosed(t, doneCh)
	assert.Equal(t, uint64(1), c.Stats().MediaUnits)
}

func TestAlreadyPlaying(t *testing.T) {
	c, exec, _ := newTestCommon(t)
	ctx := context.Background()
	fn := func(ctx context.Context, s *Session) error {
		<-ctx.Done()
		return nil
	}
	start(t, c, exec, fn)

	var err error
	require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {
		err = c.StartSession(ctx, "rtsp://127.0.0.1/x", fn)
	}))
	require.ErrorAs(t, err, &ErrAlreadyPlaying{})
	require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {
		err = c.TeardownSession(ctx)
	}))
	require.NoError(t, err)
}

func TestNoExecutor(t *testing.T) {
	c := NewCommon(streamtypes.ProtocolFamilyRTMP, nil)
	err := c.StartSession(context.Background(), "rtmp://127.0.0.1/x", nil)
	require.ErrorAs(t, err, &ErrNoExecutor{})
}
