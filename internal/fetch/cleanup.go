package fetch

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanupTemps removes temporary artifacts created by this process
// (downloads, uploads, page slices) older than maxAge, from the system
// temp dir plus any extra dirs such as a configured upload dir. Best
// effort: a crashed session may leave files behind until the next sweep.
func CleanupTemps(maxAge time.Duration, dirs ...string) {
	now := time.Now()
	swept := make(map[string]struct{})
	for _, dir := range append([]string{os.TempDir()}, dirs...) {
		dir = filepath.Clean(dir)
		if _, ok := swept[dir]; ok || dir == "." {
			continue
		}
		swept[dir] = struct{}{}
		sweepDir(dir, maxAge, now)
	}
}

func sweepDir(dir string, maxAge time.Duration, now time.Time) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if !strings.HasPrefix(info.Name(), "finsight-") {
			return nil
		}
		if now.Sub(info.ModTime()) >= maxAge {
			_ = os.Remove(path)
		}
		return nil
	})
}
