package streamclient

import (
	"sync"

	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/flv"
	"github.com/xaionaro-go/streamclient/pkg/player/hls"
	"github.com/xaionaro-go/streamclient/pkg/player/mpegts"
	"github.com/xaionaro-go/streamclient/pkg/player/rtmp"
	"github.com/xaionaro-go/streamclient/pkg/player/rtsp"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/protocol"
	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

// DefaultRegistry contains all the protocol families supported by this
// build.
var DefaultRegistry = sync.OnceValue(NewDefaultRegistry)

func NewDefaultRegistry() *protocol.Registry {
	r := protocol.NewRegistry()
	r.Register(streamtypes.ProtocolFamilyRTSP, func(exec *executor.Executor) types.Player {
		return rtsp.New(exec)
	})
	r.Register(streamtypes.ProtocolFamilyRTMP, func(exec *executor.Executor) types.Player {
		return rtmp.New(exec)
	})
	r.Register(streamtypes.ProtocolFamilyHTTPHLS, func(exec *executor.Executor) types.Player {
		return hls.New(exec)
	})
	r.Register(streamtypes.ProtocolFamilyHTTPTS, func(exec *executor.Executor) types.Player {
		return mpegts.New(exec)
	})
	r.Register(streamtypes.ProtocolFamilyHTTPFLV, func(exec *executor.Executor) types.Player {
		return flv.New(exec)
	})
	registerSRT(r)
	return r
}
