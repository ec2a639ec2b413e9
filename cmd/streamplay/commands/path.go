package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func expandPath(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to get the home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(p, "~")), nil
}
