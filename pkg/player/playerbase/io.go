package playerbase

import (
	"context"
	"io"
	"net"
)

type countingReader struct {
	io.Reader
	session *Session
}

func (r countingReader) Read(b []byte) (int, error) {
	n, err := r.Reader.Read(b)
	if n > 0 {
		r.session.Received(n)
	}
	return n, err
}

// Reader wraps r to account the bytes read through it.
func (s *Session) Reader(r io.Reader) io.Reader {
	return countingReader{Reader: r, session: s}
}

type countingConn struct {
	net.Conn
	session *Session
}

func (c countingConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if n > 0 {
		c.session.Received(n)
	}
	return n, err
}

// Dial connects through the player's dialer. The returned connection
// accounts received bytes and is closed once ctx is done.
func (s *Session) Dial(
	ctx context.Context,
	network, address string,
) (net.Conn, error) {
	conn, err := s.dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	CloseOnDone(ctx, conn)
	return countingConn{Conn: conn, session: s}, nil
}

// CloseOnDone closes c once ctx is done; this is how blocking reads are
// interrupted on teardown.
func CloseOnDone(ctx context.Context, c io.Closer) {
	context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
}
