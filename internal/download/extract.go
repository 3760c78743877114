package download

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ArchiveFormat names a supported archive container/codec pairing.
type ArchiveFormat string

const (
	FormatTarGz  ArchiveFormat = "tar.gz"
	FormatTarXz  ArchiveFormat = "tar.xz"
	FormatTarZst ArchiveFormat = "tar.zst"
	FormatZip    ArchiveFormat = "zip"
)

// DetectFormat infers the archive format from a URL or filename.
func DetectFormat(name string) (ArchiveFormat, error) {
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return FormatTarXz, nil
	case strings.HasSuffix(name, ".tar.zst"):
		return FormatTarZst, nil
	case strings.HasSuffix(name, ".zip"):
		return FormatZip, nil
	}
	return "", fmt.Errorf("cannot infer archive format of %s; pass it explicitly", name)
}

// ParseFormat maps a string tag onto an ArchiveFormat.
func ParseFormat(tag string) (ArchiveFormat, error) {
	switch ArchiveFormat(strings.ToLower(strings.TrimSpace(tag))) {
	case FormatTarGz:
		return FormatTarGz, nil
	case FormatTarXz:
		return FormatTarXz, nil
	case FormatTarZst:
		return FormatTarZst, nil
	case FormatZip:
		return FormatZip, nil
	default:
		return "", fmt.Errorf("unknown archive format %q (want tar.gz, tar.xz, tar.zst or zip)", tag)
	}
}

// extractArchive unpacks the already-verified archive at path into
// destDir.
func extractArchive(path, destDir string, format ArchiveFormat) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", destDir, err)
	}

	if format == FormatZip {
		return extractZip(path, destDir)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	var r io.Reader
	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	case FormatTarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("opening xz stream: %w", err)
		}
		r = xzr
	case FormatTarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("opening zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	default:
		return fmt.Errorf("unknown archive format %q", string(format))
	}

	return extractTar(r, destDir)
}

func extractTar(r io.Reader, destDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		target, err := securePath(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)|0o700); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			linkTarget := hdr.Linkname
			if filepath.IsAbs(linkTarget) {
				return fmt.Errorf("archive entry %s links to absolute path %s", hdr.Name, linkTarget)
			}
			// The resolved link must stay inside the destination.
			if _, err := securePath(destDir, filepath.Join(filepath.Dir(hdr.Name), linkTarget)); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating parent of %s: %w", target, err)
			}
			if err := os.Symlink(linkTarget, target); err != nil {
				return fmt.Errorf("creating symlink %s: %w", target, err)
			}
		default:
			// Character/block devices and the like have no place in a
			// build artifact archive.
			continue
		}
	}
}

func extractZip(path, destDir string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening zip archive: %w", err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		target, err := securePath(destDir, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, entry.Mode()|0o700); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("opening zip entry %s: %w", entry.Name, err)
		}
		err = writeEntry(target, rc, entry.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", target, err)
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return out.Close()
}

// securePath joins an archive entry name onto destDir and rejects
// entries that would escape it.
func securePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	base := filepath.Clean(destDir)
	if target != base && !strings.HasPrefix(target, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes destination directory", name)
	}
	return target, nil
}
