// Package storage provides the persistence layer for telemetry events: a
// flat-file store with size-based rotation and optional compression, and an
// embedded SQLite store for indexed queries.
package storage

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// rotationStamp formats rotation timestamps as YYYYMMDD_HHMMSS.
const rotationStamp = "20060102_150405"

// Rotator performs size-based file rotation with optional gzip compression
// and age-based cleanup of rotated files.
type Rotator struct {
	MaxSizeBytes  int64
	Compress      bool
	RetentionDays int

	log *logrus.Logger
}

// NewRotator creates a Rotator. A nil logger falls back to the standard one.
func NewRotator(maxSizeBytes int64, compress bool, retentionDays int, log *logrus.Logger) *Rotator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Rotator{
		MaxSizeBytes:  maxSizeBytes,
		Compress:      compress,
		RetentionDays: retentionDays,
		log:           log,
	}
}

// ShouldRotate reports whether the file at path exists and has reached the
// configured maximum size.
func (r *Rotator) ShouldRotate(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() >= r.MaxSizeBytes
}

// RotateFile renames the file by inserting a timestamp before the extension
// and, if compression is enabled, gzips the renamed file and removes the
// uncompressed copy. It returns the rotated path, or "" if rotation failed;
// inability to rotate is non-fatal and the caller keeps writing to the
// original file rather than losing data.
func (r *Rotator) RotateFile(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	rotated := fmt.Sprintf("%s.%s%s", base, time.Now().Format(rotationStamp), ext)

	if err := os.Rename(path, rotated); err != nil {
		r.log.WithError(err).WithField("path", path).Warn("file rotation failed")
		return ""
	}

	if !r.Compress {
		return rotated
	}

	compressed, err := r.compressFile(rotated)
	if err != nil {
		// Keep the uncompressed rotated file; the data is still intact.
		r.log.WithError(err).WithField("path", rotated).Warn("compression of rotated file failed")
		return rotated
	}
	if err := os.Remove(rotated); err != nil {
		r.log.WithError(err).WithField("path", rotated).Warn("removing uncompressed rotated file failed")
	}
	return compressed
}

// compressFile gzips src to src+".gz". A half-written compressed file is
// removed on failure so rotation never leaves two permanent copies.
func (r *Rotator) compressFile(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	dst := src + ".gz"
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dst, err)
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		_ = gz.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("compressing %s: %w", src, err)
	}
	if err := gz.Close(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("finalizing gzip for %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("closing %s: %w", dst, err)
	}
	return dst, nil
}

// CleanupOldFiles deletes files in dir matching pattern whose modification
// time is older than the retention window.
func (r *Rotator) CleanupOldFiles(dir, pattern string) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		r.log.WithError(err).WithField("pattern", pattern).Warn("cleanup glob failed")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -r.RetentionDays)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				r.log.WithError(err).WithField("path", path).Warn("removing expired rotated file failed")
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		r.log.WithField("count", removed).Info("removed expired rotated files")
	}
}

// RotatedFiles returns the rotated siblings of originalPath, newest first by
// modification time. The original file itself is excluded.
func (r *Rotator) RotatedFiles(originalPath string) []string {
	ext := filepath.Ext(originalPath)
	base := strings.TrimSuffix(originalPath, ext)

	matches, err := filepath.Glob(base + ".*" + ext + "*")
	if err != nil {
		return nil
	}

	var rotated []string
	for _, m := range matches {
		if m != originalPath {
			rotated = append(rotated, m)
		}
	}
	sort.Slice(rotated, func(i, j int) bool {
		fi, erri := os.Stat(rotated[i])
		fj, errj := os.Stat(rotated[j])
		if erri != nil || errj != nil {
			return rotated[i] > rotated[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})
	return rotated
}

// DecompressFile writes the decompressed content of compressedPath to
// outputPath (default: compressedPath minus its .gz suffix) and returns the
// output path.
func (r *Rotator) DecompressFile(compressedPath, outputPath string) (string, error) {
	in, err := os.Open(compressedPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", compressedPath, err)
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("reading gzip header of %s: %w", compressedPath, err)
	}
	defer gz.Close()

	if outputPath == "" {
		outputPath = strings.TrimSuffix(compressedPath, ".gz")
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", outputPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, gz); err != nil {
		return "", fmt.Errorf("decompressing %s: %w", compressedPath, err)
	}
	return outputPath, nil
}
