// Package rtsp implements playing of RTSP streams, with RTP
// interleaved into the RTSP connection.
package rtsp

import (
	"context"
	"fmt"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/description"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pion/rtp"
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/playerbase"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

const (
	DefaultPort = 554
)

type Player struct {
	playerbase.Common
}

var _ types.Player = (*Player)(nil)

func New(exec *executor.Executor) *Player {
	return &Player{
		Common: playerbase.NewCommon(streamtypes.ProtocolFamilyRTSP, exec),
	}
}

func (p *Player) Play(ctx context.Context, url string) error {
	return p.StartSession(ctx, url, p.run)
}

func (p *Player) Teardown(ctx context.Context) error {
	return p.TeardownSession(ctx)
}

func (p *Player) run(ctx context.Context, s *playerbase.Session) error {
	u, err := base.ParseURL(s.URL)
	if err != nil {
		return fmt.Errorf("unable to parse URL '%s': %w", s.URL, err)
	}

	transport := gortsplib.TransportTCP
	c := &gortsplib.Client{
		Transport:   &transport,
		DialContext: s.Dial,
	}
	if timeout := s.Settings().MediaTimeout(); timeout > 0 {
		c.ReadTimeout = timeout
	}
	if timeout := s.Settings().ConnectTimeout(); timeout > 0 {
		c.WriteTimeout = timeout
	}

	if err := c.Start(u.Scheme, u.Host); err != nil {
		return fmt.Errorf("unable to start the RTSP client: %w", err)
	}
	defer c.Close()
	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	desc, _, err := c.Describe(u)
	if err != nil {
		return fmt.Errorf("DESCRIBE '%s' failed: %w", u, err)
	}
	logger.Debugf(ctx, "RTSP: %d medias at '%s'", len(desc.Medias), u)

	if err := c.SetupAll(desc.BaseURL, desc.Medias); err != nil {
		return fmt.Errorf("SETUP failed: %w", err)
	}

	c.OnPacketRTPAny(func(_ *description.Media, _ format.Format, _ *rtp.Packet) {
		s.MediaReceived(ctx, 1)
	})

	if _, err := c.Play(nil); err != nil {
		return fmt.Errorf("PLAY failed: %w", err)
	}
	s.Connected(ctx)

	return c.Wait()
}
