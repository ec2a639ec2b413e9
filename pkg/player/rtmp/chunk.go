package rtmp

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	defaultChunkSize  = 128
	maxChunkSize      = 0xFFFFFF
	maxMessageLength  = 16 * 1024 * 1024
	extendedTimestamp = 0xFFFFFF
)

type messageType uint8

const (
	messageTypeSetChunkSize     = messageType(1)
	messageTypeAbort            = messageType(2)
	messageTypeAck              = messageType(3)
	messageTypeUserControl      = messageType(4)
	messageTypeWindowAckSize    = messageType(5)
	messageTypeSetPeerBandwidth = messageType(6)
	messageTypeAudio            = messageType(8)
	messageTypeVideo            = messageType(9)
	messageTypeDataAMF0         = messageType(18)
	messageTypeCommandAMF0      = messageType(20)
)

type message struct {
	ChunkStreamID uint32
	Type          messageType
	StreamID      uint32
	Timestamp     uint32
	Payload       []byte
}

type chunkStreamState struct {
	timestamp      uint32
	timestampDelta uint32
	length         uint32
	typeID         messageType
	streamID       uint32
	hasExtended    bool
	payload        []byte
}

// chunkReader reassembles messages from interleaved chunk streams.
type chunkReader struct {
	r         io.Reader
	chunkSize uint32
	streams   map[uint32]*chunkStreamState
	buf       [11]byte
}

func newChunkReader(r io.Reader) *chunkReader {
	return &chunkReader{
		r:         r,
		chunkSize: defaultChunkSize,
		streams:   map[uint32]*chunkStreamState{},
	}
}

func (cr *chunkReader) readUint(n int) (uint32, error) {
	if _, err := io.ReadFull(cr.r, cr.buf[:n]); err != nil {
		return 0, err
	}
	var v uint32
	for _, b := range cr.buf[:n] {
		v = v<<8 | uint32(b)
	}
	return v, nil
}

func (cr *chunkReader) ReadMessage() (*message, error) {
	for {
		msg, err := cr.readChunk()
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue
		}
		if msg.Type == messageTypeSetChunkSize {
			if len(msg.Payload) < 4 {
				return nil, fmt.Errorf("too short set-chunk-size message: %d bytes", len(msg.Payload))
			}
			size := binary.BigEndian.Uint32(msg.Payload) & 0x7FFFFFFF
			if size == 0 || size > maxChunkSize {
				return nil, fmt.Errorf("invalid chunk size: %d", size)
			}
			cr.chunkSize = size
		}
		return msg, nil
	}
}

func (cr *chunkReader) readChunk() (*message, error) {
	b0, err := cr.readUint(1)
	if err != nil {
		return nil, err
	}
	format := b0 >> 6
	csID := b0 & 0x3F
	switch csID {
	case 0:
		v, err := cr.readUint(1)
		if err != nil {
			return nil, err
		}
		csID = 64 + v
	case 1:
		if _, err := io.ReadFull(cr.r, cr.buf[:2]); err != nil {
			return nil, err
		}
		csID = 64 + uint32(cr.buf[0]) + uint32(cr.buf[1])*256
	}

	state := cr.streams[csID]
	if state == nil {
		if format != 0 {
			return nil, fmt.Errorf("chunk stream %d starts with format %d", csID, format)
		}
		state = &chunkStreamState{}
		cr.streams[csID] = state
	}
	isNewMessage := len(state.payload) == 0

	var ts uint32
	if format <= 2 {
		if ts, err = cr.readUint(3); err != nil {
			return nil, err
		}
	}
	if format <= 1 {
		if state.length, err = cr.readUint(3); err != nil {
			return nil, err
		}
		typeID, err := cr.readUint(1)
		if err != nil {
			return nil, err
		}
		state.typeID = messageType(typeID)
	}
	if format == 0 {
		if _, err := io.ReadFull(cr.r, cr.buf[:4]); err != nil {
			return nil, err
		}
		state.streamID = binary.LittleEndian.Uint32(cr.buf[:4])
	}
	if format <= 2 {
		state.hasExtended = ts == extendedTimestamp
	}
	if state.hasExtended {
		if ts, err = cr.readUint(4); err != nil {
			return nil, err
		}
	}
	if isNewMessage {
		switch format {
		case 0:
			state.timestamp = ts
			state.timestampDelta = 0
		case 1, 2:
			state.timestampDelta = ts
			state.timestamp += ts
		case 3:
			state.timestamp += state.timestampDelta
		}
	}
	if state.length > maxMessageLength {
		return nil, fmt.Errorf("message of %d bytes is too long", state.length)
	}

	toRead := state.length - uint32(len(state.payload))
	if toRead > cr.chunkSize {
		toRead = cr.chunkSize
	}
	offset := len(state.payload)
	state.payload = append(state.payload, make([]byte, toRead)...)
	if _, err := io.ReadFull(cr.r, state.payload[offset:]); err != nil {
		return nil, err
	}
	if uint32(len(state.payload)) < state.length {
		return nil, nil
	}

	msg := &message{
		ChunkStreamID: csID,
		Type:          state.typeID,
		StreamID:      state.streamID,
		Timestamp:     state.timestamp,
		Payload:       state.payload,
	}
	state.payload = nil
	return msg, nil
}

// chunkWriter writes every message as a format-0 chunk followed by
// format-3 continuation chunks.
type chunkWriter struct {
	w         io.Writer
	chunkSize uint32
}

func newChunkWriter(w io.Writer) *chunkWriter {
	return &chunkWriter{
		w:         w,
		chunkSize: defaultChunkSize,
	}
}

func (cw *chunkWriter) WriteMessage(msg *message) error {
	if msg.ChunkStreamID < 2 || msg.ChunkStreamID > 63 {
		return fmt.Errorf("unsupported chunk stream ID %d", msg.ChunkStreamID)
	}
	if len(msg.Payload) > maxChunkSize {
		return fmt.Errorf("message of %d bytes is too long", len(msg.Payload))
	}
	isExtended := msg.Timestamp >= extendedTimestamp

	header := make([]byte, 0, 16)
	header = append(header, byte(msg.ChunkStreamID))
	ts := msg.Timestamp
	if isExtended {
		ts = extendedTimestamp
	}
	header = append(header, byte(ts>>16), byte(ts>>8), byte(ts))
	length := uint32(len(msg.Payload))
	header = append(header, byte(length>>16), byte(length>>8), byte(length))
	header = append(header, byte(msg.Type))
	header = binary.LittleEndian.AppendUint32(header, msg.StreamID)
	if isExtended {
		header = binary.BigEndian.AppendUint32(header, msg.Timestamp)
	}

	payload := msg.Payload
	for {
		n := min(uint32(len(payload)), cw.chunkSize)
		if _, err := cw.w.Write(append(header, payload[:n]...)); err != nil {
			return err
		}
		payload = payload[n:]
		if len(payload) == 0 {
			return nil
		}
		header = append(header[:0], 0xC0|byte(msg.ChunkStreamID))
		if isExtended {
			header = binary.BigEndian.AppendUint32(header, msg.Timestamp)
		}
	}
}
