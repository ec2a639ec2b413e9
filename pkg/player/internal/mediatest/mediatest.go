// Package mediatest generates small media streams for player tests.
package mediatest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/asticode/go-astits"
	"github.com/yutopp/go-flv"
	flvtag "github.com/yutopp/go-flv/tag"
)

const (
	videoPID = 256
)

// TS returns an MPEG-TS stream with PAT/PMT and count video PES packets.
func TS(ctx context.Context, count int) ([]byte, error) {
	var buf bytes.Buffer
	mx := astits.NewMuxer(ctx, &buf)
	err := mx.AddElementaryStream(astits.PMTElementaryStream{
		ElementaryPID: videoPID,
		StreamType:    astits.StreamTypeH264Video,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to add an elementary stream: %w", err)
	}
	mx.SetPCRPID(videoPID)
	if _, err := mx.WriteTables(); err != nil {
		return nil, fmt.Errorf("unable to write the tables: %w", err)
	}

	for i := 0; i < count; i++ {
		_, err := mx.WriteData(&astits.MuxerData{
			PID: videoPID,
			AdaptationField: &astits.PacketAdaptationField{
				RandomAccessIndicator: true,
			},
			PES: &astits.PESData{
				Header: &astits.PESHeader{
					OptionalHeader: &astits.PESOptionalHeader{
						MarkerBits:      2,
						PTSDTSIndicator: astits.PTSDTSIndicatorOnlyPTS,
						PTS:             &astits.ClockReference{Base: int64(i) * 3000},
					},
					StreamID: 224,
				},
				Data: []byte{0, 0, 0, 1, 0x09, 0xf0, byte(i)},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("unable to write PES #%d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// FLV returns an FLV stream with count video tags.
func FLV(count int) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := flv.NewEncoder(&buf, flv.FlagsVideo)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the FLV encoder: %w", err)
	}
	for i := 0; i < count; i++ {
		err := enc.Encode(&flvtag.FlvTag{
			TagType:   flvtag.TagTypeVideo,
			Timestamp: uint32(i * 33),
			Data: &flvtag.VideoData{
				FrameType:     flvtag.FrameTypeKeyFrame,
				CodecID:       flvtag.CodecIDAVC,
				AVCPacketType: flvtag.AVCPacketTypeNALU,
				Data:          bytes.NewReader([]byte{0, 0, 0, 2, 0x09, byte(i)}),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("unable to encode tag #%d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
