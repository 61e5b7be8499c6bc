package cmd

import (
	"fmt"
	"os"
	"path/filepath"
)

// chdirDest resolves and enters destDir, the working directory every
// snapshot operation assumes it runs in.
func chdirDest(destDir string) error {
	abs, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolve dest_dir: %w", err)
	}
	return os.Chdir(abs)
}
