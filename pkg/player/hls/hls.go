// Package hls implements playing of HLS streams: the playlist is
// refreshed until it is closed, and every new MPEG-TS segment is
// downloaded and demuxed.
package hls

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/Eyevinn/hls-m3u8/m3u8"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/mpegts"
	"github.com/xaionaro-go/streamclient/pkg/player/playerbase"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

const (
	defaultRefreshInterval = time.Second
	maxVariantRedirects    = 4
)

type Player struct {
	playerbase.Common
}

var _ types.Player = (*Player)(nil)

func New(exec *executor.Executor) *Player {
	return &Player{
		Common: playerbase.NewCommon(streamtypes.ProtocolFamilyHTTPHLS, exec),
	}
}

func (p *Player) Play(ctx context.Context, url string) error {
	return p.StartSession(ctx, url, p.run)
}

func (p *Player) Teardown(ctx context.Context) error {
	return p.TeardownSession(ctx)
}

func (p *Player) run(ctx context.Context, s *playerbase.Session) error {
	playlistURL, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("unable to parse URL '%s': %w", s.URL, err)
	}

	media, playlistURL, err := fetchMediaPlaylist(ctx, s, playlistURL)
	if err != nil {
		return err
	}
	s.Connected(ctx)

	var (
		isFirst = true
		lastSeq uint64
	)
	for {
		refreshInterval := defaultRefreshInterval
		for _, seg := range media.Segments {
			if seg == nil {
				continue
			}
			if seg.Duration > 0 {
				refreshInterval = time.Duration(seg.Duration * float64(time.Second))
			}
			if !isFirst && seg.SeqId <= lastSeq {
				continue
			}
			if err := playSegment(ctx, s, playlistURL, seg); err != nil {
				return err
			}
			isFirst = false
			lastSeq = seg.SeqId
		}
		if media.Closed {
			return io.EOF
		}

		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-time.After(refreshInterval):
		}

		playlist, _, err := fetchPlaylist(ctx, s, playlistURL)
		if err != nil {
			return err
		}
		var ok bool
		media, ok = playlist.(*m3u8.MediaPlaylist)
		if !ok {
			return fmt.Errorf("'%s' turned from a media playlist into %T", playlistURL, playlist)
		}
	}
}

func fetchPlaylist(
	ctx context.Context,
	s *playerbase.Session,
	playlistURL *url.URL,
) (m3u8.Playlist, m3u8.ListType, error) {
	body, err := s.HTTPGet(ctx, playlistURL.String())
	if err != nil {
		return nil, 0, err
	}
	defer body.Close()

	playlist, listType, err := m3u8.DecodeFrom(body, false)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to parse playlist '%s': %w", playlistURL, err)
	}
	return playlist, listType, nil
}

// fetchMediaPlaylist follows master playlists to the variant with the
// highest bandwidth.
func fetchMediaPlaylist(
	ctx context.Context,
	s *playerbase.Session,
	playlistURL *url.URL,
) (*m3u8.MediaPlaylist, *url.URL, error) {
	for range maxVariantRedirects {
		playlist, listType, err := fetchPlaylist(ctx, s, playlistURL)
		if err != nil {
			return nil, nil, err
		}
		switch listType {
		case m3u8.MEDIA:
			return playlist.(*m3u8.MediaPlaylist), playlistURL, nil
		case m3u8.MASTER:
			variant := bestVariant(playlist.(*m3u8.MasterPlaylist))
			if variant == nil {
				return nil, nil, fmt.Errorf("master playlist '%s' has no variants", playlistURL)
			}
			logger.Debugf(ctx, "HLS: picked variant '%s' (bandwidth %d)", variant.URI, variant.Bandwidth)
			playlistURL, err = playlistURL.Parse(variant.URI)
			if err != nil {
				return nil, nil, fmt.Errorf("unable to resolve variant URI '%s': %w", variant.URI, err)
			}
		default:
			return nil, nil, fmt.Errorf("unknown type of playlist '%s': %v", playlistURL, listType)
		}
	}
	return nil, nil, fmt.Errorf("too many nested master playlists at '%s'", playlistURL)
}

func bestVariant(master *m3u8.MasterPlaylist) *m3u8.Variant {
	var best *m3u8.Variant
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best
}

func playSegment(
	ctx context.Context,
	s *playerbase.Session,
	playlistURL *url.URL,
	seg *m3u8.MediaSegment,
) error {
	segURL, err := playlistURL.Parse(seg.URI)
	if err != nil {
		return fmt.Errorf("unable to resolve segment URI '%s': %w", seg.URI, err)
	}
	logger.Tracef(ctx, "HLS: segment #%d: %s", seg.SeqId, segURL)

	body, err := s.HTTPGet(ctx, segURL.String())
	if err != nil {
		return err
	}
	defer body.Close()

	if err := mpegts.Demux(ctx, s, body); err != nil {
		return fmt.Errorf("segment '%s': %w", segURL, err)
	}
	return nil
}
