package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
)

// TLSDialer wraps the connections of Dialer into a TLS client session.
type TLSDialer struct {
	Dialer Dialer
	Config *tls.Config
}

var _ Dialer = (*TLSDialer)(nil)

func NewTLSDialer(dialer Dialer, cfg *tls.Config) *TLSDialer {
	return &TLSDialer{
		Dialer: dialer,
		Config: cfg,
	}
}

func (d *TLSDialer) DialContext(
	ctx context.Context,
	network, address string,
) (_ net.Conn, _err error) {
	conn, err := d.Dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	var cfg *tls.Config
	if d.Config != nil {
		cfg = d.Config.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			host = address
		}
		cfg.ServerName = host
	}

	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("TLS handshake with '%s' failed: %w", address, err)
	}
	return tlsConn, nil
}
