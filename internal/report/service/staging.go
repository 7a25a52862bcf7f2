package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	stagingDir     = ".staging"
	reportPhotoDir = "reports"
)

// stagedPhoto is a photo written under the staging tree before the report
// transaction. Final is relative to the uploads root.
type stagedPhoto struct {
	Staged string
	Final  string
}

func (s *Service) stagePhoto(content io.Reader, fileName string) (stagedPhoto, string, error) {
	dir := filepath.Join(s.uploadsRoot, stagingDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stagedPhoto{}, "", err
	}

	name := uuid.NewString() + photoExt(fileName)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return stagedPhoto{}, "", err
	}
	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return stagedPhoto{}, "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return stagedPhoto{}, "", err
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		_ = os.Remove(path)
		return stagedPhoto{}, "", err
	}

	return stagedPhoto{Staged: path, Final: name}, mt.String(), nil
}

// commitPhotos moves staged files into the report's directory. The report
// row already exists, so failures are logged and the file stays staged.
func (s *Service) commitPhotos(reportID string, photos []stagedPhoto) {
	if len(photos) == 0 {
		return
	}
	dir := filepath.Join(s.uploadsRoot, reportPhotoDir, reportID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Error("failed to create photo directory", zap.String("report_id", reportID), zap.Error(err))
		return
	}
	for _, p := range photos {
		dest := filepath.Join(dir, p.Final)
		if err := os.Rename(p.Staged, dest); err != nil {
			s.log.Error("failed to move staged photo",
				zap.String("report_id", reportID),
				zap.String("staged", p.Staged),
				zap.Error(err),
			)
		}
	}
}

func discardStaged(photos []stagedPhoto) {
	for _, p := range photos {
		_ = os.Remove(p.Staged)
	}
}

// ReconcileStaging removes staged photos older than maxAge. They belong to
// writes that never committed.
func (s *Service) ReconcileStaging(ctx context.Context, maxAge time.Duration) (int, error) {
	dir := filepath.Join(s.uploadsRoot, stagingDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read staging dir: %w", err)
	}

	cutoff := s.clock.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("failed to remove stale staged photo", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Info("removed stale staged photos", zap.Int("count", removed))
	}
	return removed, nil
}

func photoExt(fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return ext
	default:
		return ""
	}
}
