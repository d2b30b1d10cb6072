package writer

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/achilleasa/rtaccel/gpubuf"
	"github.com/achilleasa/rtaccel/log"
	"gopkg.in/yaml.v3"
)

const (
	layoutFile = "layout.yaml"
	bufferFile = "buffer.bin"
)

// Write the buffer contents and partition layout to a zip file.
func WriteArchive(filename string, buf *gpubuf.Buffer) error {
	logger := log.New("zip writer")
	start := time.Now()

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("zip writer: %w", err)
	}

	if err = WriteArchiveTo(f, buf); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("zip writer: %w", err)
	}

	logger.Noticef(`wrote compiled scene to "%s" in %d ms`, filename, time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Write the buffer contents and partition layout as a zip archive to w.
func WriteArchiveTo(w io.Writer, buf *gpubuf.Buffer) error {
	zw := zip.NewWriter(w)

	lw, err := zw.Create(layoutFile)
	if err != nil {
		return fmt.Errorf("zip writer: %w", err)
	}
	enc := yaml.NewEncoder(lw)
	if err = enc.Encode(buf.Layout()); err != nil {
		return fmt.Errorf("zip writer: could not encode %s: %w", layoutFile, err)
	}
	if err = enc.Close(); err != nil {
		return fmt.Errorf("zip writer: %w", err)
	}

	bw, err := zw.Create(bufferFile)
	if err != nil {
		return fmt.Errorf("zip writer: %w", err)
	}
	if _, err = bw.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("zip writer: could not write %s: %w", bufferFile, err)
	}

	if err = zw.Close(); err != nil {
		return fmt.Errorf("zip writer: %w", err)
	}
	return nil
}
