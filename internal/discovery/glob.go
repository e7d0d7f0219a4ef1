package discovery

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/boyter/gocodewalker"
)

// Pattern is the glob matching every side file of pid.
func Pattern(prefix string, pid int) string {
	return fmt.Sprintf("%s_%d_*%s", prefix, pid, Extension)
}

// Glob lists the side files of pid directly inside dir. Names that match the
// pattern but not the naming convention are reported to warningWriter and
// skipped.
func Glob(dir string, prefix string, pid int, warningWriter io.Writer) ([]Name, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), Pattern(prefix, pid))
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", dir, err)
	}
	names := make([]Name, 0, len(matches))
	for _, match := range matches {
		name, err := ParseName(filepath.Join(dir, match))
		if err != nil {
			_, _ = fmt.Fprintf(warningWriter, "WARNING: %v\n", err)
			continue
		}
		names = append(names, name)
	}
	sortNames(names)
	return names, nil
}

// Walk recursively collects side files of any pid under root, e.g. a folder
// of saved dumps.
func Walk(root string, prefix string) ([]Name, error) {
	if rootStat, err := os.Stat(root); err != nil || !rootStat.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	fileListQueue := make(chan *gocodewalker.File, 100)
	walker := gocodewalker.NewFileWalker(root, fileListQueue)
	walker.IncludeHidden = true
	walker.ExcludeDirectory = []string{".git"}

	errChan := make(chan error, 1)
	go func() {
		errChan <- walker.Start()
		close(errChan)
	}()

	pattern := prefix + "_*" + Extension
	names := make([]Name, 0)
	for f := range fileListQueue {
		if ok, _ := doublestar.Match(pattern, f.Filename); !ok {
			continue
		}
		name, err := ParseName(f.Location)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	if err := <-errChan; err != nil {
		return nil, fmt.Errorf("error walking %s: %w", root, err)
	}
	sortNames(names)
	return names, nil
}
