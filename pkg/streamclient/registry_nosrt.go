//go:build without_srt
// +build without_srt

package streamclient

import (
	"github.com/xaionaro-go/streamclient/pkg/protocol"
)

const SupportedSRT = false

func registerSRT(*protocol.Registry) {}
