package ingest

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ZipDir archives every regular file under srcDir into a zip file at
// destPath. Entry names are slash-separated paths relative to srcDir, so
// extracting the archive reproduces the original tree.
func ZipDir(srcDir, destPath string) (err error) {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close archive: %w", cerr)
		}
	}()

	zw := zip.NewWriter(out)
	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(srcDir, path)
		if rerr != nil {
			return rerr
		}
		return addZipEntry(zw, path, filepath.ToSlash(rel))
	})
	if walkErr != nil {
		if cerr := zw.Close(); cerr != nil {
			return errors.Join(fmt.Errorf("archive %s: %w", srcDir, walkErr), cerr)
		}
		return fmt.Errorf("archive %s: %w", srcDir, walkErr)
	}
	if cerr := zw.Close(); cerr != nil {
		return fmt.Errorf("finalize archive: %w", cerr)
	}
	return nil
}

func addZipEntry(zw *zip.Writer, path, name string) (err error) {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(w, f)
	return err
}

// Unzip extracts a zip archive into destDir. Entries escaping destDir are
// rejected to guard against zip-slip archives.
func Unzip(archivePath, destDir string) (err error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() {
		if cerr := zr.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close archive: %w", cerr)
		}
	}()

	for _, entry := range zr.File {
		if eerr := extractZipEntry(entry, destDir); eerr != nil {
			return fmt.Errorf("extract %s: %w", entry.Name, eerr)
		}
	}
	return nil
}

func extractZipEntry(entry *zip.File, destDir string) (err error) {
	target := filepath.Join(destDir, filepath.FromSlash(entry.Name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("entry escapes destination directory")
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if mkErr := os.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
		return mkErr
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entry.Mode().Perm())
	if err != nil {
		return err
	}
	if _, copyErr := io.Copy(dst, src); copyErr != nil {
		if cerr := dst.Close(); cerr != nil {
			return errors.Join(copyErr, cerr)
		}
		return copyErr
	}
	return dst.Close()
}
