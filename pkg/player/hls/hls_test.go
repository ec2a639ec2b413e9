package hls

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/internal/mediatest"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
)

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=100000
low/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=500000
high/index.m3u8
`

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:1
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:1.000,
seg0.ts
#EXTINF:1.000,
seg1.ts
#EXT-X-ENDLIST
`

type events struct {
	playResultCh chan error
	shutdownCh   chan error
}

func play(t *testing.T, url string, opts ...types.Option) (*Player, *executor.Executor, events) {
	ctx := context.Background()
	exec := executor.New(ctx, t.Name())
	t.Cleanup(func() { _ = exec.Close(ctx) })

	ev := events{
		playResultCh: make(chan error, 1),
		shutdownCh:   make(chan error, 1),
	}
	p := New(exec)
	types.Options(opts).Apply(p.Settings())
	p.SetListener(types.ListenerFuncs{
		PlayResult: func(ctx context.Context, err error) { ev.playResultCh <- err },
		Shutdown:   func(ctx context.Context, err error) { ev.shutdownCh <- err },
	})
	var err error
	require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {
		err = p.Play(ctx, url)
	}))
	require.NoError(t, err)
	return p, exec, ev
}

func waitErr(t *testing.T, ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timeout")
		return nil
	}
}

func TestPlayMasterPlaylist(t *testing.T) {
	segment, err := mediatest.TS(context.Background(), 3)
	require.NoError(t, err)

	var lowRequests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/live/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, masterPlaylist)
	})
	mux.HandleFunc("/live/low/", func(w http.ResponseWriter, r *http.Request) {
		lowRequests.Add(1)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/live/high/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, mediaPlaylist)
	})
	mux.HandleFunc("/live/high/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(segment)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, _, ev := play(t, srv.URL+"/live/master.m3u8?token=1")
	require.NoError(t, waitErr(t, ev.playResultCh))
	require.ErrorIs(t, waitErr(t, ev.shutdownCh), io.EOF)

	assert.GreaterOrEqual(t, p.Stats().MediaUnits, uint64(6))
	assert.Zero(t, lowRequests.Load())
}

func TestPlayLiveTeardown(t *testing.T) {
	segment, err := mediatest.TS(context.Background(), 1)
	require.NoError(t, err)

	const livePlaylist = `#EXTM3U
#EXT-X-TARGETDURATION:1
#EXT-X-MEDIA-SEQUENCE:7
#EXTINF:0.050,
seg7.ts
`
	var playlistRequests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		playlistRequests.Add(1)
		_, _ = io.WriteString(w, livePlaylist)
	})
	mux.HandleFunc("/seg7.ts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(segment)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, exec, ev := play(t, srv.URL+"/index.m3u8", types.OptionMediaTimeout(time.Minute))
	require.NoError(t, waitErr(t, ev.playResultCh))
	require.Eventually(t, func() bool {
		return playlistRequests.Load() >= 3
	}, 5*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	var (
		teardownErr error
		doneCh      <-chan struct{}
	)
	require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {
		teardownErr = p.Teardown(ctx)
		doneCh = p.SessionDone()
	}))
	require.NoError(t, teardownErr)
	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("the session did not stop")
	}
	require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {}))
	assert.Empty(t, ev.shutdownCh)
	assert.Equal(t, uint64(1), p.Stats().MediaUnits)
}
