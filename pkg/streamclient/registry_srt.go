//go:build !without_srt
// +build !without_srt

package streamclient

import (
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/srt"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/protocol"
	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

const SupportedSRT = true

func registerSRT(r *protocol.Registry) {
	r.Register(streamtypes.ProtocolFamilySRT, func(exec *executor.Executor) types.Player {
		return srt.New(exec)
	})
}
