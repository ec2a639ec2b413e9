// Package mpegts implements playing of MPEG-TS streams delivered over
// HTTP(S).
package mpegts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astits"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/streamclient/pkg/executor"
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
		Common: playerbase.NewCommon(streamtypes.ProtocolFamilyHTTPTS, exec),
	}
}

func (p *Player) Play(ctx context.Context, url string) error {
	return p.StartSession(ctx, url, p.run)
}

func (p *Player) Teardown(ctx context.Context) error {
	return p.TeardownSession(ctx)
}

func (p *Player) run(ctx context.Context, s *playerbase.Session) error {
	body, err := s.HTTPGet(ctx, s.URL)
	if err != nil {
		return err
	}
	defer body.Close()
	s.Connected(ctx)

	err = Demux(ctx, s, body)
	if err != nil {
		return err
	}
	return io.EOF
}

// Demux reads TS packets from r until it ends, reporting every PES
// packet as a media unit. The end of r is not an error.
func Demux(
	ctx context.Context,
	s *playerbase.Session,
	r io.Reader,
) error {
	dmx := astits.NewDemuxer(ctx, r)
	for {
		d, err := dmx.NextData()
		if err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) {
				return nil
			}
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			return fmt.Errorf("unable to demux: %w", err)
		}
		switch {
		case d.PES != nil:
			s.MediaReceived(ctx, 1)
		case d.PMT != nil:
			logger.Tracef(ctx, "PMT: %d elementary streams", len(d.PMT.ElementaryStreams))
		}
	}
}
