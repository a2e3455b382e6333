// Package zip bundles generated artifacts into a single downloadable archive.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

type Entry struct {
	Filename string
	Data     []byte
}

// Archive writes the entries into an in-memory zip. Entry order is preserved.
func Archive(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		w, err := zw.Create(entry.Filename)
		if err != nil {
			return nil, fmt.Errorf("zip: add %s: %w", entry.Filename, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", entry.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: finalize: %w", err)
	}
	return buf.Bytes(), nil
}
