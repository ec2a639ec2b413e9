package mediatest

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strings"
	"sync"

	"github.com/pion/rtp"
)

const rtspSDP = "v=0\r\n" +
	"o=- 0 0 IN IP4 127.0.0.1\r\n" +
	"s=Stream\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"t=0 0\r\n" +
	"m=video 0 RTP/AVP 96\r\n" +
	"a=rtpmap:96 H264/90000\r\n" +
	"a=fmtp:96 packetization-mode=1\r\n" +
	"a=control:trackID=0\r\n"

// RTSPServer is a minimal RTSP server: it describes a single H264
// track, accepts TCP-interleaved SETUP, and on PLAY sends Packets RTP
// packets on channel 0.
type RTSPServer struct {
	Packets  int
	PlayedCh chan string
}

func NewRTSPServer(packets int) *RTSPServer {
	return &RTSPServer{
		Packets:  packets,
		PlayedCh: make(chan string, 10),
	}
}

func (srv *RTSPServer) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go srv.handle(conn)
	}
}

type rtspConn struct {
	net.Conn
	writeLocker sync.Mutex
}

func (c *rtspConn) write(b []byte) error {
	c.writeLocker.Lock()
	defer c.writeLocker.Unlock()
	_, err := c.Conn.Write(b)
	return err
}

func (c *rtspConn) respond(cseq string, headers []string, body string) error {
	var b strings.Builder
	b.WriteString("RTSP/1.0 200 OK\r\n")
	b.WriteString("CSeq: " + cseq + "\r\n")
	for _, h := range headers {
		b.WriteString(h + "\r\n")
	}
	if body != "" {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return c.write([]byte(b.String()))
}

func (srv *RTSPServer) handle(netConn net.Conn) {
	c := &rtspConn{Conn: netConn}
	defer c.Close()
	br := bufio.NewReader(c)
	tp := textproto.NewReader(br)

	for {
		first, err := br.Peek(1)
		if err != nil {
			return
		}
		if first[0] == '$' {
			var hdr [4]byte
			if _, err := io.ReadFull(br, hdr[:]); err != nil {
				return
			}
			if _, err := br.Discard(int(binary.BigEndian.Uint16(hdr[2:]))); err != nil {
				return
			}
			continue
		}

		requestLine, err := tp.ReadLine()
		if err != nil {
			return
		}
		headers, err := tp.ReadMIMEHeader()
		if err != nil {
			return
		}
		parts := strings.Fields(requestLine)
		if len(parts) != 3 {
			return
		}
		method, uri, cseq := parts[0], parts[1], headers.Get("CSeq")

		switch method {
		case "OPTIONS":
			err = c.respond(cseq, []string{"Public: OPTIONS, DESCRIBE, SETUP, PLAY, GET_PARAMETER, TEARDOWN"}, "")
		case "DESCRIBE":
			err = c.respond(cseq, []string{
				"Content-Type: application/sdp",
				"Content-Base: " + strings.TrimSuffix(uri, "/") + "/",
			}, rtspSDP)
		case "SETUP":
			err = c.respond(cseq, []string{
				"Transport: RTP/AVP/TCP;unicast;interleaved=0-1",
				"Session: 12345678;timeout=60",
			}, "")
		case "PLAY":
			err = c.respond(cseq, []string{"Session: 12345678"}, "")
			if err == nil {
				srv.PlayedCh <- uri
				go srv.sendPackets(c)
			}
		case "GET_PARAMETER", "TEARDOWN":
			err = c.respond(cseq, []string{"Session: 12345678"}, "")
		default:
			err = c.write([]byte("RTSP/1.0 501 Not Implemented\r\nCSeq: " + cseq + "\r\n\r\n"))
		}
		if err != nil {
			return
		}
	}
}

func (srv *RTSPServer) sendPackets(c *rtspConn) {
	for i := 0; i < srv.Packets; i++ {
		pkt := rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         true,
				PayloadType:    96,
				SequenceNumber: uint16(i),
				Timestamp:      uint32(i * 3000),
				SSRC:           0x12345678,
			},
			Payload: []byte{0x41, 0x9a, byte(i)},
		}
		b, err := pkt.Marshal()
		if err != nil {
			return
		}
		frame := append([]byte{'$', 0, 0, 0}, b...)
		binary.BigEndian.PutUint16(frame[2:], uint16(len(b)))
		if err := c.write(frame); err != nil {
			return
		}
	}
}
