package streamtypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolFamily_String(t *testing.T) {
	for c := UndefinedProtocolFamily; c < endOfProtocolFamily; c++ {
		assert.NotContains(t, c.String(), "unknown", "ProtocolFamily %d does not have a proper string defined", c)
	}
}

func TestProtocolFamily_ParseRoundTrip(t *testing.T) {
	for _, f := range AllProtocolFamilies() {
		assert.Equal(t, f, ParseProtocolFamily(f.String()))
	}
	assert.Equal(t, UndefinedProtocolFamily, ParseProtocolFamily("ftp"))
	assert.Equal(t, ProtocolFamilyHTTPHLS, ParseProtocolFamily(" HTTP-HLS "))
}

func TestProtocolFamily_JSON(t *testing.T) {
	b, err := json.Marshal(ProtocolFamilyHTTPFLV)
	require.NoError(t, err)
	assert.Equal(t, `"http-flv"`, string(b))

	var f ProtocolFamily
	require.NoError(t, json.Unmarshal([]byte(`"srt"`), &f))
	assert.Equal(t, ProtocolFamilySRT, f)
}

func TestProtocolFamily_IsHTTP(t *testing.T) {
	assert.True(t, ProtocolFamilyHTTPHLS.IsHTTP())
	assert.True(t, ProtocolFamilyHTTPTS.IsHTTP())
	assert.True(t, ProtocolFamilyHTTPFLV.IsHTTP())
	assert.False(t, ProtocolFamilyRTSP.IsHTTP())
	assert.False(t, ProtocolFamilyRTMP.IsHTTP())
	assert.False(t, ProtocolFamilySRT.IsHTTP())
}
