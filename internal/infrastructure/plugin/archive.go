package plugininfra

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pluginports "kilometers.ai/pluginrepo/internal/core/ports/plugin"
)

// ErrUnsafeArchivePath is returned for entries that would land outside the target directory
var ErrUnsafeArchivePath = errors.New("unsafe archive path")

// ErrUnknownArchive is returned when the file is neither zip nor gzip'd tar
var ErrUnknownArchive = errors.New("unknown archive format")

var (
	zipMagic  = []byte{'P', 'K', 0x03, 0x04}
	zipEmpty  = []byte{'P', 'K', 0x05, 0x06}
	gzipMagic = []byte{0x1f, 0x8b}
)

// ArchiveExtractor unpacks zip and tar.gz plugin packages
type ArchiveExtractor struct{}

// NewArchiveExtractor creates an extractor
func NewArchiveExtractor() *ArchiveExtractor { return &ArchiveExtractor{} }

// Extract detects the archive format by its magic bytes and unpacks it into targetDir.
// Existing files are overwritten.
func (e *ArchiveExtractor) Extract(archivePath, targetDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	head, err := bufio.NewReader(f).Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read archive header: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, zipMagic), bytes.HasPrefix(head, zipEmpty):
		return extractZip(archivePath, targetDir)
	case bytes.HasPrefix(head, gzipMagic):
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to rewind archive: %w", err)
		}
		return extractTarGz(f, targetDir)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownArchive, archivePath)
	}
}

func extractZip(archivePath, targetDir string) error {
	r, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		if r != nil {
			r.Close()
		}
		return fmt.Errorf("%w: %v", ErrUnsafeArchivePath, err)
	}
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	for _, file := range r.File {
		targetPath, err := safeJoin(targetDir, file.Name)
		if err != nil {
			return err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("failed to open zip entry %s: %w", file.Name, err)
		}
		err = writeFile(targetPath, rc, 0644)
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func extractTarGz(r io.Reader, targetDir string) error {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("%w: %s", ErrUnsafeArchivePath, header.Name)
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		targetPath, err := safeJoin(targetDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeFile(targetPath, tarReader, os.FileMode(header.Mode)&0777|0600); err != nil {
				return err
			}
		}
	}

	return nil
}

func writeFile(targetPath string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	return file.Close()
}

// safeJoin prevents path traversal
func safeJoin(targetDir, name string) (string, error) {
	targetPath := filepath.Join(targetDir, name)
	cleanDir := filepath.Clean(targetDir)
	if targetPath != cleanDir && !strings.HasPrefix(targetPath, cleanDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchivePath, name)
	}
	return targetPath, nil
}

var _ pluginports.ArchiveExtractor = (*ArchiveExtractor)(nil)
