package pathguard

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem is the read-only view of the filesystem the validator needs.
type FileSystem interface {
	Lstat(name string) (fs.FileInfo, error)
	EvalSymlinks(path string) (string, error)
}

type osFileSystem struct{}

func (osFileSystem) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}

func (osFileSystem) EvalSymlinks(path string) (string, error) {
	return filepath.EvalSymlinks(path)
}
