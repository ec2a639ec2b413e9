// Package transport provides the byte-channel hooks players dial through,
// so that the channel can be intercepted (e.g. by TLS) without the players
// knowing about it.
package transport

import (
	"context"
	"net"
	"time"
)

type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Dialable is implemented by players that establish their own TCP
// connections and allow replacing the way they do it.
type Dialable interface {
	Dialer() Dialer
	SetDialer(Dialer)
}

// NetDialer is the default Dialer.
type NetDialer struct {
	net.Dialer
}

var _ Dialer = (*NetDialer)(nil)

func NewNetDialer() *NetDialer {
	return &NetDialer{}
}

// DialerFunc adapts a plain function to Dialer.
type DialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (fn DialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return fn(ctx, network, address)
}

// TimeoutDialer bounds each dial by Timeout. A zero Timeout means no bound.
type TimeoutDialer struct {
	Dialer  Dialer
	Timeout time.Duration
}

var _ Dialer = (*TimeoutDialer)(nil)

func (d *TimeoutDialer) DialContext(
	ctx context.Context,
	network, address string,
) (net.Conn, error) {
	if d.Timeout > 0 {
		var cancelFn context.CancelFunc
		ctx, cancelFn = context.WithTimeout(ctx, d.Timeout)
		defer cancelFn()
	}
	return d.Dialer.DialContext(ctx, network, address)
}
