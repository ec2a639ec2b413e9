package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	for _, tc := range []struct {
		in   string
		want string
	}{
		{in: "/etc/streamplay.yaml", want: "/etc/streamplay.yaml"},
		{in: "relative.yaml", want: "relative.yaml"},
		{in: "~", want: homeDir},
		{in: "~/.streamplay.yaml", want: filepath.Join(homeDir, ".streamplay.yaml")},
		{in: "~other/x", want: "~other/x"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := expandPath(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
