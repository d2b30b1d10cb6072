package reader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/rtaccel/asset"
	"github.com/achilleasa/rtaccel/gpubuf"
	"github.com/achilleasa/rtaccel/log"
	"gopkg.in/yaml.v3"
)

const (
	layoutFile = "layout.yaml"
	bufferFile = "buffer.bin"
)

// Read a compiled scene buffer from a zip archive containing the buffer
// partition layout and the raw buffer contents.
func ReadArchive(res *asset.Resource) (*gpubuf.Buffer, error) {
	logger := log.New("zip reader")
	logger.Noticef(`reading compiled scene from "%s"`, res.Path())
	start := time.Now()

	// zip package requires a reader implementing ReaderAt. To work around
	// this requirement we read the entire zip file into memory and create
	// a reader from the bytes package that implements ReaderAt
	data, err := io.ReadAll(res)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("zip reader: %s: %w", res.Path(), err)
	}

	var layout *gpubuf.Layout
	var contents []byte
	for _, f := range zr.File {
		switch f.Name {
		case layoutFile:
			layout = &gpubuf.Layout{}
			err = readZipEntry(f, func(r io.Reader) error {
				return yaml.NewDecoder(r).Decode(layout)
			})
		case bufferFile:
			err = readZipEntry(f, func(r io.Reader) (readErr error) {
				contents, readErr = io.ReadAll(r)
				return readErr
			})
		default:
			logger.Warningf("unknown file %s in scene zip file; skipping", f.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("zip reader: failed to load %s: %w", f.Name, err)
		}
	}

	if layout == nil || contents == nil {
		return nil, fmt.Errorf("zip reader: %s: archive must contain %s and %s", res.Path(), layoutFile, bufferFile)
	}

	buf, err := gpubuf.FromLayout(*layout, contents)
	if err != nil {
		return nil, err
	}

	logger.Noticef("loaded compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return buf, nil
}

func readZipEntry(f *zip.File, fn func(io.Reader) error) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return fn(rc)
}
