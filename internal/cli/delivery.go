package cli

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// fileDelivery writes a download to disk. With no explicit path the file is
// named after the attachment and placed in dir.
type fileDelivery struct {
	dir  string
	path string
	file *os.File
	err  error
}

func newFileDelivery(output string) *fileDelivery {
	if output == "" {
		return &fileDelivery{dir: "."}
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return &fileDelivery{dir: output}
	}
	return &fileDelivery{path: output}
}

func (d *fileDelivery) Attach(filename, contentType string, size int64) {
	if d.path == "" {
		d.path = filepath.Join(d.dir, filepath.Base(filename))
	}
	d.file, d.err = os.Create(d.path)
}

func (d *fileDelivery) Write(p []byte) (int, error) {
	if d.err != nil {
		return 0, errors.Wrapf(d.err, "failed to create %s", d.path)
	}
	if d.file == nil {
		return 0, errors.New("download started before a filename was attached")
	}
	return d.file.Write(p)
}

// finish closes the file, removing it when the download failed.
func (d *fileDelivery) finish(failed bool) error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	if failed {
		_ = os.Remove(d.path)
		return nil
	}
	return errors.Wrapf(err, "failed to close %s", d.path)
}
