package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Output receives named debugging artifacts such as raw HTML pages.
type Output interface {
	Write(id string, contents string)
}

type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput creates dir if it does not exist yet, existing files
// with the same id are overwritten on Write.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	path := filepath.Join(o.directory, filepath.Base(id))
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write debug output", "id", id, "err", err)
		return
	}
	slog.Debug("wrote debug output", "path", path, "bytes", len(contents))
}

// MemoryOutput keeps the last write for every id.
type MemoryOutput struct {
	lock  sync.Mutex
	files map[string]string
}

func (o *MemoryOutput) Write(id string, contents string) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.files == nil {
		o.files = map[string]string{}
	}
	o.files[id] = contents
}

func (o *MemoryOutput) Get(id string) (string, bool) {
	o.lock.Lock()
	defer o.lock.Unlock()
	contents, ok := o.files[id]
	return contents, ok
}
