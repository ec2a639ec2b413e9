// Package flv implements playing of FLV streams delivered over HTTP(S).
package flv

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/playerbase"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
	"github.com/yutopp/go-flv"
	flvtag "github.com/yutopp/go-flv/tag"
)

type Player struct {
	playerbase.Common
}

var _ types.Player = (*Player)(nil)

func New(exec *executor.Executor) *Player {
	return &Player{
		Common: playerbase.NewCommon(streamtypes.ProtocolFamilyHTTPFLV, exec),
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

	dec, err := flv.NewDecoder(body)
	if err != nil {
		return fmt.Errorf("unable to read the FLV header: %w", err)
	}
	s.Connected(ctx)

	for {
		var tag flvtag.FlvTag
		err := dec.Decode(&tag)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("unable to decode an FLV tag: %w", err)
		}
		isMedia, err := consumeTag(&tag)
		tag.Close()
		if err != nil {
			return err
		}
		if isMedia {
			s.MediaReceived(ctx, 1)
		} else {
			logger.Tracef(ctx, "FLV tag of type %d", tag.TagType)
		}
	}
}

// consumeTag drains the payload of the tag, since the decoder continues
// from where the payload reader stopped.
func consumeTag(tag *flvtag.FlvTag) (bool, error) {
	var payload io.Reader
	switch d := tag.Data.(type) {
	case *flvtag.AudioData:
		payload = d.Data
	case *flvtag.VideoData:
		payload = d.Data
	default:
		return false, nil
	}
	if payload != nil {
		if _, err := io.Copy(io.Discard, payload); err != nil {
			return false, fmt.Errorf("unable to read the tag payload: %w", err)
		}
	}
	return true, nil
}
