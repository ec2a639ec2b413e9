// Package srt implements playing of SRT streams. The payload is
// expected to be MPEG-TS.
package srt

import (
	"context"
	"fmt"
	"io"

	srt "github.com/datarhei/gosrt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/mpegts"
	"github.com/xaionaro-go/streamclient/pkg/player/playerbase"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

type Player struct {
	playerbase.Common
}

var _ types.Player = (*Player)(nil)

func New(exec *executor.Executor) *Player {
	return &Player{
		Common: playerbase.NewCommon(streamtypes.ProtocolFamilySRT, exec),
	}
}

func (p *Player) Play(ctx context.Context, url string) error {
	return p.StartSession(ctx, url, p.run)
}

func (p *Player) Teardown(ctx context.Context) error {
	return p.TeardownSession(ctx)
}

// dialConfig builds the SRT configuration: parameters given in the URL
// win over the player settings.
func dialConfig(url string, settings *types.Settings) (srt.Config, string, error) {
	cfg := srt.DefaultConfig()
	if timeout := settings.ConnectTimeout(); timeout > 0 {
		cfg.ConnectionTimeout = timeout
	}
	if timeout := settings.MediaTimeout(); timeout > 0 {
		cfg.PeerIdleTimeout = timeout
	}
	if latency := settings.Latency(); latency > 0 {
		cfg.ReceiverLatency = latency
		cfg.PeerLatency = latency
	}
	if passphrase := settings.Passphrase(); passphrase != "" {
		cfg.Passphrase = passphrase
	}

	addr, err := cfg.UnmarshalURL(url)
	if err != nil {
		return srt.Config{}, "", fmt.Errorf("unable to parse SRT URL '%s': %w", url, err)
	}
	if err := cfg.Validate(); err != nil {
		return srt.Config{}, "", fmt.Errorf("invalid SRT configuration: %w", err)
	}
	return cfg, addr, nil
}

func (p *Player) run(ctx context.Context, s *playerbase.Session) error {
	cfg, addr, err := dialConfig(s.URL, s.Settings())
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "SRT: dialing '%s' (stream ID '%s')", addr, cfg.StreamId)

	conn, err := dial(ctx, addr, cfg)
	if err != nil {
		return fmt.Errorf("unable to connect to '%s': %w", addr, err)
	}
	defer conn.Close()
	playerbase.CloseOnDone(ctx, conn)
	s.Connected(ctx)

	if err := mpegts.Demux(ctx, s, s.Reader(conn)); err != nil {
		return err
	}
	return io.EOF
}

type dialResult struct {
	Conn  srt.Conn
	Error error
}

// dial runs srt.Dial, which cannot be cancelled, on its own goroutine.
// If ctx is done first, dial returns at once and the connection is
// closed as soon as the dial completes.
func dial(ctx context.Context, addr string, cfg srt.Config) (srt.Conn, error) {
	resultCh := make(chan dialResult, 1)
	observability.Go(ctx, func(ctx context.Context) {
		conn, err := srt.Dial("srt", addr, cfg)
		resultCh <- dialResult{Conn: conn, Error: err}
	})

	select {
	case r := <-resultCh:
		return r.Conn, r.Error
	case <-ctx.Done():
		observability.Go(ctx, func(ctx context.Context) {
			r := <-resultCh
			if r.Conn != nil {
				logger.Debugf(ctx, "SRT: closing the connection to '%s' dialed after cancellation", addr)
				_ = r.Conn.Close()
			}
		})
		return nil, context.Cause(ctx)
	}
}
