package rtmp

import (
	"bytes"
	"encoding/binary"
	"fmt"

	rtmpmsg "github.com/xaionaro-go/go-rtmp/message"
)

const (
	chunkStreamIDControl = 2
	chunkStreamIDCommand = 3
	chunkStreamIDStream  = 8

	userControlSetBufferLength = 3
)

type command struct {
	Name          string
	TransactionID float64
	Args          []any
}

func encodeCommand(name string, transactionID float64, args ...any) ([]byte, error) {
	var buf bytes.Buffer
	enc := rtmpmsg.NewAMFEncoder(&buf, rtmpmsg.EncodingTypeAMF0)
	for _, v := range append([]any{name, transactionID}, args...) {
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("unable to encode %#+v: %w", v, err)
		}
	}
	return buf.Bytes(), nil
}

func decodeCommand(payload []byte) (*command, error) {
	r := bytes.NewReader(payload)
	dec := rtmpmsg.NewAMFDecoder(r, rtmpmsg.EncodingTypeAMF0)

	var values []any
	for r.Len() > 0 {
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("unable to decode value #%d of a command: %w", len(values), err)
		}
		values = append(values, v)
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("a command has only %d values", len(values))
	}
	name, ok := values[0].(string)
	if !ok {
		return nil, fmt.Errorf("the command name is %T, not a string", values[0])
	}
	transactionID, _ := values[1].(float64)
	return &command{
		Name:          name,
		TransactionID: transactionID,
		Args:          values[2:],
	}, nil
}

// infoObject returns the first object argument, which is where status
// commands keep "level" and "code".
func (c *command) infoObject() map[string]any {
	for _, arg := range c.Args {
		if obj, ok := arg.(map[string]any); ok {
			if _, ok := obj["code"]; ok {
				return obj
			}
		}
	}
	return nil
}

func (c *command) statusCode() (level, code string) {
	info := c.infoObject()
	level, _ = info["level"].(string)
	code, _ = info["code"].(string)
	return
}

func commandMessage(streamID uint32, payload []byte) *message {
	csID := uint32(chunkStreamIDCommand)
	if streamID != 0 {
		csID = chunkStreamIDStream
	}
	return &message{
		ChunkStreamID: csID,
		Type:          messageTypeCommandAMF0,
		StreamID:      streamID,
		Payload:       payload,
	}
}

func uint32Message(t messageType, v uint32) *message {
	return &message{
		ChunkStreamID: chunkStreamIDControl,
		Type:          t,
		Payload:       binary.BigEndian.AppendUint32(nil, v),
	}
}

func setBufferLengthMessage(streamID uint32, bufferMS uint32) *message {
	payload := binary.BigEndian.AppendUint16(nil, userControlSetBufferLength)
	payload = binary.BigEndian.AppendUint32(payload, streamID)
	payload = binary.BigEndian.AppendUint32(payload, bufferMS)
	return &message{
		ChunkStreamID: chunkStreamIDControl,
		Type:          messageTypeUserControl,
		Payload:       payload,
	}
}
