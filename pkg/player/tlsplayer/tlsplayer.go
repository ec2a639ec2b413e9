// Package tlsplayer provides a decorator which makes any player that
// dials its own TCP connections talk over TLS.
package tlsplayer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
	"github.com/xaionaro-go/streamclient/pkg/transport"
)

// DefaultPorts are the ports used when a secure URL does not specify
// one.
var DefaultPorts = map[streamtypes.ProtocolFamily]uint16{
	streamtypes.ProtocolFamilyRTSP: 322,
	streamtypes.ProtocolFamilyRTMP: 443,
}

type DialablePlayer interface {
	types.Player
	transport.Dialable
}

type Player struct {
	Inner  DialablePlayer
	Config *tls.Config

	plainDialer transport.Dialer
}

var _ types.Player = (*Player)(nil)
var _ transport.Dialable = (*Player)(nil)

// Wrap installs a TLS layer over the dialer of inner. A nil cfg means
// the default TLS configuration.
func Wrap(inner DialablePlayer, cfg *tls.Config) *Player {
	p := &Player{
		Inner:  inner,
		Config: cfg,
	}
	p.SetDialer(inner.Dialer())
	return p
}

func (p *Player) Family() streamtypes.ProtocolFamily {
	return p.Inner.Family()
}

func (p *Player) Security() streamtypes.SecurityMode {
	return streamtypes.SecurityModeTLS
}

func (p *Player) Settings() *types.Settings {
	return p.Inner.Settings()
}

func (p *Player) SetListener(l types.Listener) {
	p.Inner.SetListener(l)
}

// Dialer returns the dialer the TLS layer runs over.
func (p *Player) Dialer() transport.Dialer {
	return p.plainDialer
}

// SetDialer replaces the dialer the TLS layer runs over.
func (p *Player) SetDialer(d transport.Dialer) {
	p.plainDialer = d
	p.Inner.SetDialer(transport.NewTLSDialer(d, p.Config))
}

func (p *Player) Play(ctx context.Context, url string) (_err error) {
	logger.Debugf(ctx, "Play(ctx, '%s'): TLS %s", url, p.Family())
	defer func() { logger.Debugf(ctx, "/Play(ctx, '%s'): TLS %s: %v", url, p.Family(), _err) }()

	plainURL, err := PlainURL(url, p.Family())
	if err != nil {
		return err
	}
	return p.Inner.Play(ctx, plainURL)
}

func (p *Player) Teardown(ctx context.Context) error {
	return p.Inner.Teardown(ctx)
}

func (p *Player) Stats() types.Stats {
	return p.Inner.Stats()
}

// PlainURL turns "xs://host/path" into "x://host:port/path", so that
// the inner player does not try to do TLS on its own; the port defaults
// to the secure one of the family.
func PlainURL(rawURL string, family streamtypes.ProtocolFamily) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("unable to parse URL '%s': %w", rawURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if !strings.HasSuffix(scheme, "s") {
		return u.String(), nil
	}
	u.Scheme = strings.TrimSuffix(scheme, "s")
	if u.Port() == "" {
		if port, ok := DefaultPorts[family]; ok {
			u.Host = net.JoinHostPort(u.Hostname(), strconv.FormatUint(uint64(port), 10))
		}
	}
	return u.String(), nil
}
