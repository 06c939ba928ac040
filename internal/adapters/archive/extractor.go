// Package archive unpacks zip and tar archives into a target directory.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/zerr"
)

// Format identifies an archive container and compression.
type Format string

const (
	FormatUnknown Format = ""
	FormatZip     Format = "zip"
	FormatTar     Format = "tar"
	FormatTarGz   Format = "tar.gz"
	FormatTarZst  Format = "tar.zst"
)

// DetectFormat derives the format of an archive from its file name.
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return FormatTarZst
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar
	default:
		return FormatUnknown
	}
}

// Extractor implements ports.Extractor.
type Extractor struct{}

var _ ports.Extractor = (*Extractor)(nil)

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract unpacks archivePath into dest, creating dest if needed.
// Entries that would land outside dest are rejected with ErrUnsafeArchivePath.
func (e *Extractor) Extract(ctx context.Context, archivePath, dest string) error {
	format := DetectFormat(archivePath)
	if format == FormatUnknown {
		return domain.Tag(domain.ErrUnsupportedArchive, "archive", archivePath)
	}

	if err := os.MkdirAll(dest, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create extraction directory"), "path", dest)
	}

	var err error
	if format == FormatZip {
		err = extractZip(ctx, archivePath, dest)
	} else {
		err = extractTarFile(ctx, archivePath, dest, format)
	}
	if err != nil {
		return domain.Tag(err, "archive", archivePath)
	}
	return nil
}

func extractZip(ctx context.Context, archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return zerr.Wrap(err, "failed to open zip archive")
	}
	defer func() {
		_ = r.Close()
	}()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, domain.DirPerm); err != nil {
				return zerr.Wrap(err, "failed to create directory")
			}
			continue
		}
		if f.Mode()&fs.ModeSymlink != 0 {
			return domain.Tag(domain.ErrUnsafeArchivePath, "entry", f.Name, "reason", "symlink")
		}

		rc, err := f.Open()
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to open zip entry"), "entry", f.Name)
		}
		err = writeFile(target, rc, f.Mode())
		_ = rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTarFile(ctx context.Context, archivePath, dest string, format Format) error {
	file, err := os.Open(archivePath) //nolint:gosec // archive path is produced by the fetcher
	if err != nil {
		return zerr.Wrap(err, "failed to open tar archive")
	}
	defer func() {
		_ = file.Close()
	}()

	var src io.Reader = file
	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(file)
		if err != nil {
			return zerr.Wrap(err, "failed to open gzip stream")
		}
		defer func() {
			_ = gz.Close()
		}()
		src = gz
	case FormatTarZst:
		zr, err := zstd.NewReader(file)
		if err != nil {
			return zerr.Wrap(err, "failed to open zstd stream")
		}
		defer zr.Close()
		src = zr
	}

	return extractTar(ctx, tar.NewReader(src), dest)
}

func extractTar(ctx context.Context, tr *tar.Reader, dest string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return zerr.Wrap(err, "failed to read tar entry")
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, domain.DirPerm); err != nil {
				return zerr.Wrap(err, "failed to create directory")
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := linkWithin(dest, target, hdr.Linkname); err != nil {
				return domain.Tag(err, "entry", hdr.Name)
			}
		default:
			// Hard links, devices and FIFOs are not installed.
			continue
		}
	}
}

// safeJoin resolves name under dest and rejects paths escaping it.
func safeJoin(dest, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", domain.Tag(domain.ErrUnsafeArchivePath, "entry", name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.Tag(domain.ErrUnsafeArchivePath, "entry", name)
	}
	return target, nil
}

func linkWithin(dest, target, linkname string) error {
	if filepath.IsAbs(linkname) {
		return domain.Tag(domain.ErrUnsafeArchivePath, "link", linkname)
	}
	resolved := filepath.Join(filepath.Dir(target), linkname)
	rel, err := filepath.Rel(dest, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return domain.Tag(domain.ErrUnsafeArchivePath, "link", linkname)
	}
	if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create directory")
	}
	_ = os.Remove(target)
	if err := os.Symlink(linkname, target); err != nil {
		return zerr.Wrap(err, "failed to create symlink")
	}
	return nil
}

func writeFile(target string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create directory")
	}

	perm := mode.Perm() | 0o600
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm) //nolint:gosec // target checked by safeJoin
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create file"), "path", target)
	}
	if _, err := io.Copy(out, r); err != nil { //nolint:gosec // archives come from declared sources
		_ = out.Close()
		return zerr.With(zerr.Wrap(err, "failed to write file"), "path", target)
	}
	if err := out.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to close file"), "path", target)
	}
	return nil
}
