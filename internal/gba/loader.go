package gba

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/spf13/afero"
)

// loadFile reads a cartridge image from the filesystem, transparently
// unpacking .gz/.zip/.7z archives (the first entry of an archive is
// taken as the image). Plain .gba/.agb/.bin files and anything with an
// unrecognized extension are returned as-is; the cartridge format is
// a raw binary with no header validation.
func loadFile(fsys afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading rom: %w", err)
	}

	var entry io.ReadCloser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		entry, err = gzip.NewReader(bytes.NewReader(data))
	case ".zip":
		var r *zip.Reader
		r, err = zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err == nil {
			if len(r.File) == 0 {
				return nil, fmt.Errorf("unpacking %s: empty archive", path)
			}
			entry, err = r.File[0].Open()
		}
	case ".7z":
		var r *sevenzip.Reader
		r, err = sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err == nil {
			if len(r.File) == 0 {
				return nil, fmt.Errorf("unpacking %s: empty archive", path)
			}
			entry, err = r.File[0].Open()
		}
	default:
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", path, err)
	}
	defer entry.Close()

	data, err = io.ReadAll(entry)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", path, err)
	}
	return data, nil
}
