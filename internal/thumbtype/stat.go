package thumbtype

import (
	"fmt"

	"github.com/spf13/afero"
)

// Stat fingerprints the file at path. Failures are reported as ErrIO.
func Stat(fsys afero.Fs, path string) (Fingerprint, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	}
	if info.IsDir() {
		return Fingerprint{}, fmt.Errorf("%w: %s is a directory", ErrIO, path)
	}
	return Fingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}
