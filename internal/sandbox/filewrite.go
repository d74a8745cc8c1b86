package sandbox

import (
	"fmt"
	"path/filepath"
	"strings"
)

var deniedWriteRoots = []string{"/etc", "/usr", "/bin", "/sbin", "/var", "/boot"}

// CheckFileWrite enforces the file-write sandbox policy (§4.C): writes are
// permitted only under workspaceRoot or /tmp; writes to system roots and
// to dotfiles outside the workspace are refused.
func CheckFileWrite(path, workspaceRoot string) error {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(workspaceRoot, abs)
	}
	abs = filepath.Clean(abs)

	for _, root := range deniedWriteRoots {
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return fmt.Errorf("sandbox: write to %s is forbidden", abs)
		}
	}

	if within(abs, "/tmp") {
		return nil
	}
	if workspaceRoot != "" && within(abs, filepath.Clean(workspaceRoot)) {
		return nil
	}

	base := filepath.Base(abs)
	if strings.HasPrefix(base, ".") {
		return fmt.Errorf("sandbox: write to dotfile %s outside workspace is forbidden", abs)
	}
	return fmt.Errorf("sandbox: write to %s is outside the workspace root", abs)
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
