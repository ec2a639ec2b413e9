// Package rtmp implements playing of RTMP streams.
package rtmp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/go-rtmp/handshake"
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/playerbase"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

const (
	DefaultPort = 1935

	flashVersion = "LNX 9,0,124,2"

	transactionIDConnect      = 1
	transactionIDCreateStream = 2
)

type ErrStatus struct {
	Level string
	Code  string
}

func (e ErrStatus) Error() string {
	return fmt.Sprintf("the server responded with status '%s' (level '%s')", e.Code, e.Level)
}

type Player struct {
	playerbase.Common
}

var _ types.Player = (*Player)(nil)

func New(exec *executor.Executor) *Player {
	return &Player{
		Common: playerbase.NewCommon(streamtypes.ProtocolFamilyRTMP, exec),
	}
}

func (p *Player) Play(ctx context.Context, url string) error {
	return p.StartSession(ctx, url, p.run)
}

func (p *Player) Teardown(ctx context.Context) error {
	return p.TeardownSession(ctx)
}

type target struct {
	Address string
	App     string
	TCURL   string
	Stream  string
}

// parseURL splits rtmp://host[:port]/app[/instance]/stream[?args] into
// the parts RTMP needs; the query stays with the stream name.
func parseURL(rawURL string) (*target, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse URL '%s': %w", rawURL, err)
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), fmt.Sprint(DefaultPort))
	}

	path := strings.Trim(u.Path, "/")
	idx := strings.LastIndexByte(path, '/')
	if idx <= 0 {
		return nil, fmt.Errorf("URL '%s' does not have both an application and a stream name", rawURL)
	}
	app, stream := path[:idx], path[idx+1:]
	if u.RawQuery != "" {
		stream += "?" + u.RawQuery
	}
	return &target{
		Address: host,
		App:     app,
		TCURL:   fmt.Sprintf("%s://%s/%s", u.Scheme, u.Host, app),
		Stream:  stream,
	}, nil
}

type conn struct {
	io.ReadWriter
	reader        *chunkReader
	writer        *chunkWriter
	windowAckSize uint32
	received      uint32
	acknowledged  uint32
}

func newConn(rw io.ReadWriter) *conn {
	c := &conn{ReadWriter: rw}
	c.reader = newChunkReader(countingReader{c})
	c.writer = newChunkWriter(rw)
	return c
}

type countingReader struct {
	c *conn
}

func (r countingReader) Read(b []byte) (int, error) {
	n, err := r.c.ReadWriter.Read(b)
	r.c.received += uint32(n)
	return n, err
}

// readMessage handles the protocol control messages and returns the
// first message that is not one of them.
func (c *conn) readMessage() (*message, error) {
	for {
		msg, err := c.reader.ReadMessage()
		if err != nil {
			return nil, err
		}
		if c.windowAckSize > 0 && c.received-c.acknowledged >= c.windowAckSize {
			if err := c.writer.WriteMessage(uint32Message(messageTypeAck, c.received)); err != nil {
				return nil, fmt.Errorf("unable to send an acknowledgement: %w", err)
			}
			c.acknowledged = c.received
		}
		switch msg.Type {
		case messageTypeWindowAckSize:
			if len(msg.Payload) >= 4 {
				c.windowAckSize = binary.BigEndian.Uint32(msg.Payload)
			}
		case messageTypeSetChunkSize, messageTypeAbort, messageTypeAck,
			messageTypeUserControl, messageTypeSetPeerBandwidth:
		default:
			return msg, nil
		}
	}
}

func (c *conn) call(streamID uint32, name string, transactionID float64, args ...any) error {
	payload, err := encodeCommand(name, transactionID, args...)
	if err != nil {
		return err
	}
	if err := c.writer.WriteMessage(commandMessage(streamID, payload)); err != nil {
		return fmt.Errorf("unable to send command '%s': %w", name, err)
	}
	return nil
}

// waitResult waits for the response to the given transaction.
func (c *conn) waitResult(ctx context.Context, transactionID float64) (*command, error) {
	for {
		msg, err := c.readMessage()
		if err != nil {
			return nil, err
		}
		if msg.Type != messageTypeCommandAMF0 {
			logger.Tracef(ctx, "RTMP: skipping message of type %d while waiting for a result", msg.Type)
			continue
		}
		cmd, err := decodeCommand(msg.Payload)
		if err != nil {
			return nil, err
		}
		if cmd.TransactionID != transactionID {
			logger.Tracef(ctx, "RTMP: skipping command '%s'", cmd.Name)
			continue
		}
		switch cmd.Name {
		case "_result":
			return cmd, nil
		case "_error":
			level, code := cmd.statusCode()
			return nil, ErrStatus{Level: level, Code: code}
		}
	}
}

func (p *Player) run(ctx context.Context, s *playerbase.Session) error {
	t, err := parseURL(s.URL)
	if err != nil {
		return err
	}

	netConn, err := s.Dial(ctx, "tcp", t.Address)
	if err != nil {
		return fmt.Errorf("unable to connect to '%s': %w", t.Address, err)
	}
	defer netConn.Close()

	if err := handshake.HandshakeWithServer(netConn, netConn, &handshake.Config{}); err != nil {
		return fmt.Errorf("unable to handshake with '%s': %w", t.Address, err)
	}
	c := newConn(netConn)

	err = c.call(0, "connect", transactionIDConnect, map[string]any{
		"app":           t.App,
		"flashVer":      flashVersion,
		"tcUrl":         t.TCURL,
		"fpad":          false,
		"capabilities":  float64(15),
		"audioCodecs":   float64(3191),
		"videoCodecs":   float64(252),
		"videoFunction": float64(1),
	})
	if err != nil {
		return err
	}
	if _, err := c.waitResult(ctx, transactionIDConnect); err != nil {
		return fmt.Errorf("unable to connect to application '%s': %w", t.App, err)
	}

	if err := c.call(0, "createStream", transactionIDCreateStream, nil); err != nil {
		return err
	}
	result, err := c.waitResult(ctx, transactionIDCreateStream)
	if err != nil {
		return fmt.Errorf("unable to create a stream: %w", err)
	}
	var streamID uint32
	for _, arg := range result.Args {
		if v, ok := arg.(float64); ok {
			streamID = uint32(v)
		}
	}
	logger.Debugf(ctx, "RTMP: stream ID is %d", streamID)

	if err := c.call(streamID, "play", 0, nil, t.Stream, float64(-2)); err != nil {
		return err
	}
	bufferLength := s.Settings().Latency().Milliseconds()
	if bufferLength > 0 {
		err := c.writer.WriteMessage(setBufferLengthMessage(streamID, uint32(bufferLength)))
		if err != nil {
			return fmt.Errorf("unable to set the buffer length: %w", err)
		}
	}

	for {
		msg, err := c.readMessage()
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			return err
		}
		switch msg.Type {
		case messageTypeAudio, messageTypeVideo:
			s.MediaReceived(ctx, 1)
		case messageTypeCommandAMF0:
			cmd, err := decodeCommand(msg.Payload)
			if err != nil {
				return err
			}
			if cmd.Name != "onStatus" {
				continue
			}
			level, code := cmd.statusCode()
			logger.Debugf(ctx, "RTMP: status %s/%s", level, code)
			switch {
			case level == "error":
				return ErrStatus{Level: level, Code: code}
			case code == "NetStream.Play.Start":
				s.Connected(ctx)
			case code == "NetStream.Play.Stop", code == "NetStream.Play.UnpublishNotify":
				return io.EOF
			}
		}
	}
}
