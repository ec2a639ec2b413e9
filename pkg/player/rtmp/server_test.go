package rtmp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xaionaro-go/go-rtmp/handshake"
)

// testServer is a minimal RTMP server: it accepts one "play" per
// connection and sends VideoMessages video messages on it.
type testServer struct {
	Listener      net.Listener
	VideoMessages int
	Reject        bool
	PlayedCh      chan string
}

func newTestServer(t *testing.T, ln net.Listener, videoMessages int) *testServer {
	srv := &testServer{
		Listener:      ln,
		VideoMessages: videoMessages,
		PlayedCh:      make(chan string, 10),
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serve(t, conn)
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return srv
}

func (srv *testServer) serve(t *testing.T, netConn net.Conn) {
	defer netConn.Close()
	if err := handshake.HandshakeWithClient(netConn, netConn, &handshake.Config{}); err != nil {
		return
	}
	c := newConn(netConn)
	if err := c.writer.WriteMessage(uint32Message(messageTypeWindowAckSize, 256)); err != nil {
		return
	}

	for {
		msg, err := c.readMessage()
		if err != nil {
			return
		}
		if msg.Type != messageTypeCommandAMF0 {
			continue
		}
		cmd, err := decodeCommand(msg.Payload)
		if !assert.NoError(t, err) {
			return
		}
		switch cmd.Name {
		case "connect":
			err = c.call(0, "_result", cmd.TransactionID,
				map[string]any{"fmsVer": "FMS/3,0,1,123"},
				map[string]any{"level": "status", "code": "NetConnection.Connect.Success"},
			)
		case "createStream":
			err = c.call(0, "_result", cmd.TransactionID, nil, float64(1))
		case "play":
			streamName, _ := cmd.Args[1].(string)
			srv.PlayedCh <- streamName
			if srv.Reject {
				_ = c.call(msg.StreamID, "onStatus", 0, nil,
					map[string]any{"level": "error", "code": "NetStream.Play.StreamNotFound"},
				)
				return
			}
			err = c.call(msg.StreamID, "onStatus", 0, nil,
				map[string]any{"level": "status", "code": "NetStream.Play.Start"},
			)
			for i := 0; err == nil && i < srv.VideoMessages; i++ {
				err = c.writer.WriteMessage(&message{
					ChunkStreamID: 6,
					Type:          messageTypeVideo,
					StreamID:      msg.StreamID,
					Timestamp:     uint32(i * 40),
					Payload:       make([]byte, 300),
				})
			}
			return
		}
		if err != nil {
			return
		}
	}
}

func newLocalListener(t *testing.T) net.Listener {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	return ln
}

