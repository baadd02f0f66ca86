// Package export packages a cached org tree into a portable archive.
package export

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"sforg/internal/errors"
	"sforg/internal/logging"
)

// Archiver writes tar+zstd snapshots of retrieved source trees.
type Archiver struct {
	logger *logging.Logger
}

func NewArchiver(logger *logging.Logger) *Archiver {
	return &Archiver{logger: logger.Component("export")}
}

// Archive walks sourceDir and writes its regular files into a
// zstd-compressed tarball at destPath. Entry names are relative to
// sourceDir with forward slashes. Returns the number of files written.
func (a *Archiver) Archive(sourceDir, destPath string) (int, error) {
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return 0, errors.New(errors.CacheError,
			fmt.Sprintf("no source tree at %s", sourceDir), err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, errors.New(errors.InternalError, "failed to create archive file", err)
	}
	defer out.Close()

	zw, err := zstd.NewWriter(out)
	if err != nil {
		return 0, errors.New(errors.InternalError, "failed to initialize compressor", err)
	}
	tw := tar.NewWriter(zw)

	count := 0
	walkErr := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		return a.addFile(tw, path, filepath.ToSlash(rel), &count)
	})

	if err := tw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := zw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		os.Remove(destPath)
		return 0, errors.New(errors.InternalError, "failed to write archive", walkErr)
	}

	a.logger.Info("Archive written", map[string]interface{}{
		"dest":  destPath,
		"files": count,
	})
	return count, nil
}

func (a *Archiver) addFile(tw *tar.Writer, path, name string, count *int) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return err
	}
	*count++
	return nil
}

// Extract unpacks an archive written by Archive into destDir. Entry
// names escaping destDir are rejected.
func (a *Archiver) Extract(archivePath, destDir string) (int, error) {
	in, err := os.Open(archivePath)
	if err != nil {
		return 0, errors.New(errors.InternalError, "failed to open archive", err)
	}
	defer in.Close()

	zr, err := zstd.NewReader(in)
	if err != nil {
		return 0, errors.New(errors.InternalError, "failed to initialize decompressor", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	count := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, errors.New(errors.InternalError, "failed to read archive", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		target := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return count, errors.New(errors.InternalError,
				fmt.Sprintf("archive entry escapes destination: %s", hdr.Name), nil)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return count, err
		}
		f, err := os.Create(target)
		if err != nil {
			return count, err
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return count, err
		}
		if err := f.Close(); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
