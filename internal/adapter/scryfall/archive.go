package scryfall

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

type payloadKind int

const (
	kindPlain payloadKind = iota
	kindZip
	kindGzip
	kindZstd
)

var (
	magicZip  = []byte{'P', 'K', 0x03, 0x04}
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

func (k payloadKind) String() string {
	switch k {
	case kindZip:
		return "zip"
	case kindGzip:
		return "gzip"
	case kindZstd:
		return "zstd"
	default:
		return "json"
	}
}

func (k payloadKind) ext() string {
	switch k {
	case kindZip:
		return ".zip"
	case kindGzip:
		return ".gz"
	case kindZstd:
		return ".zst"
	default:
		return ".json"
	}
}

func sniff(head []byte) payloadKind {
	switch {
	case bytes.HasPrefix(head, magicZip):
		return kindZip
	case bytes.HasPrefix(head, magicGzip):
		return kindGzip
	case bytes.HasPrefix(head, magicZstd):
		return kindZstd
	default:
		return kindPlain
	}
}

func sniffFile(path string) (payloadKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return kindPlain, fmt.Errorf("open download: %w", err)
	}
	defer f.Close()

	head := make([]byte, 4)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return kindPlain, fmt.Errorf("read download: %w", err)
	}
	return sniff(head[:n]), nil
}

func isJSONFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// extractZip writes every regular entry of src into dir and returns the
// created paths. Entries resolving outside dir are rejected.
func extractZip(src, dir string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var created []string
	for _, zf := range r.File {
		if zf.FileInfo().IsDir() {
			continue
		}

		target := filepath.Join(dir, zf.Name)
		if !within(dir, target) {
			return created, fmt.Errorf("zip entry %q escapes %s", zf.Name, dir)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return created, fmt.Errorf("create dir for %q: %w", zf.Name, err)
		}

		rc, err := zf.Open()
		if err != nil {
			return created, fmt.Errorf("open entry %q: %w", zf.Name, err)
		}
		created = append(created, target)
		err = writeFile(target, rc)
		rc.Close()
		if err != nil {
			return created, fmt.Errorf("extract %q: %w", zf.Name, err)
		}
	}
	return created, nil
}

func decompressGzip(src, dst string) ([]string, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer zr.Close()

	return []string{dst}, writeFile(dst, zr)
}

func decompressZstd(src, dst string) ([]string, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer decoder.Close()

	return []string{dst}, writeFile(dst, decoder)
}

func writeFile(path string, r io.Reader) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.CopyBuffer(out, r, make([]byte, chunkSize)); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// within reports whether target is inside dir.
func within(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
