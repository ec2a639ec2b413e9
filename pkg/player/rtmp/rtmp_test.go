package rtmp

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
)

func TestParseURL(t *testing.T) {
	for _, tc := range []struct {
		URL    string
		Result target
	}{
		{
			URL: "rtmp://example.com/live/stream",
			Result: target{
				Address: "example.com:1935",
				App:     "live",
				TCURL:   "rtmp://example.com/live",
				Stream:  "stream",
			},
		},
		{
			URL: "rtmp://example.com:1936/live/instance/stream?key=1",
			Result: target{
				Address: "example.com:1936",
				App:     "live/instance",
				TCURL:   "rtmp://example.com:1936/live/instance",
				Stream:  "stream?key=1",
			},
		},
	} {
		t.Run(tc.URL, func(t *testing.T) {
			result, err := parseURL(tc.URL)
			require.NoError(t, err)
			assert.Equal(t, tc.Result, *result)
		})
	}

	_, err := parseURL("rtmp://example.com/stream")
	require.Error(t, err)
}

func TestChunkRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := newChunkWriter(&buf)
	payload := bytes.Repeat([]byte{1, 2, 3}, 200)
	msgs := []*message{
		{ChunkStreamID: 3, Type: messageTypeCommandAMF0, Payload: []byte("hello")},
		{ChunkStreamID: 6, Type: messageTypeVideo, StreamID: 1, Timestamp: 40, Payload: payload},
		{ChunkStreamID: 6, Type: messageTypeVideo, StreamID: 1, Timestamp: 0x1000000, Payload: payload},
		{ChunkStreamID: 2, Type: messageTypeSetChunkSize, Payload: []byte{0, 0, 0x10, 0}},
	}
	for _, msg := range msgs {
		require.NoError(t, w.WriteMessage(msg))
	}

	r := newChunkReader(&buf)
	for _, expected := range msgs {
		msg, err := r.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, expected, msg)
	}
	assert.Equal(t, uint32(4096), r.chunkSize)
	_, err := r.ReadMessage()
	require.ErrorIs(t, err, io.EOF)
}

func TestCommandRoundTrip(t *testing.T) {
	payload, err := encodeCommand("onStatus", 0, nil, map[string]any{
		"level": "status",
		"code":  "NetStream.Play.Start",
	})
	require.NoError(t, err)
	cmd, err := decodeCommand(payload)
	require.NoError(t, err)
	assert.Equal(t, "onStatus", cmd.Name)
	level, code := cmd.statusCode()
	assert.Equal(t, "status", level)
	assert.Equal(t, "NetStream.Play.Start", code)
}

type events struct {
	playResultCh chan error
	shutdownCh   chan error
}

func play(t *testing.T, p *Player, exec *executor.Executor, url string) events {
	ctx := context.Background()
	ev := events{
		playResultCh: make(chan error, 1),
		shutdownCh:   make(chan error, 1),
	}
	p.SetListener(types.ListenerFuncs{
		PlayResult: func(ctx context.Context, err error) { ev.playResultCh <- err },
		Shutdown:   func(ctx context.Context, err error) { ev.shutdownCh <- err },
	})
	var err error
	require.NoError(t, exec.Sync(ctx, func(ctx context.Context) {
		err = p.Play(ctx, url)
	}))
	require.NoError(t, err)
	return ev
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

func newTestExecutor(t *testing.T) *executor.Executor {
	ctx := context.Background()
	exec := executor.New(ctx, t.Name())
	t.Cleanup(func() { _ = exec.Close(ctx) })
	return exec
}

func TestPlay(t *testing.T) {
	srv := newTestServer(t, newLocalListener(t), 20)
	exec := newTestExecutor(t)

	p := New(exec)
	ev := play(t, p, exec, "rtmp://"+srv.Listener.Addr().String()+"/live/stream?token=1")
	require.NoError(t, waitErr(t, ev.playResultCh))
	assert.Equal(t, "stream?token=1", <-srv.PlayedCh)
	require.ErrorIs(t, waitErr(t, ev.shutdownCh), io.EOF)
	assert.Equal(t, uint64(20), p.Stats().MediaUnits)
}

func TestPlayStreamNotFound(t *testing.T) {
	srv := newTestServer(t, newLocalListener(t), 0)
	srv.Reject = true
	exec := newTestExecutor(t)

	ev := play(t, New(exec), exec, "rtmp://"+srv.Listener.Addr().String()+"/live/missing")
	var errStatus ErrStatus
	require.ErrorAs(t, waitErr(t, ev.playResultCh), &errStatus)
	assert.Equal(t, "NetStream.Play.StreamNotFound", errStatus.Code)
}
