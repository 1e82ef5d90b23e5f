package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cutroom/cutroom-agent/internal/ingest"
)

type Service struct {
	repo     Repository
	mediaDir string
	logger   *slog.Logger
}

func NewService(repo Repository, mediaDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, mediaDir: mediaDir, logger: logger}
}

// ImportFile copies a media file into the library directory and registers
// it. Re-importing the same source path returns the existing entry.
func (s *Service) ImportFile(ctx context.Context, srcPath string) (*MediaFile, error) {
	absPath, err := filepath.Abs(srcPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("file does not exist: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory")
	}
	if !IsMediaFile(absPath) {
		return nil, fmt.Errorf("unsupported media type: %s", filepath.Ext(absPath))
	}

	filename := filepath.Base(absPath)
	destPath := filepath.Join(s.mediaDir, filename)

	existing, err := s.repo.GetMediaByPath(ctx, destPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := os.MkdirAll(s.mediaDir, 0755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	if err := copyFile(absPath, destPath); err != nil {
		return nil, fmt.Errorf("copy into library: %w", err)
	}

	mime := ingest.DetectMIME(destPath, nil)
	media := &MediaFile{
		ID:        uuid.NewString(),
		Filename:  filename,
		Path:      destPath,
		MIME:      mime,
		Kind:      ingest.MediaKind(mime),
		SizeBytes: info.Size(),
		CreatedAt: time.Now(),
	}

	if err := s.repo.CreateMedia(ctx, media); err != nil {
		os.Remove(destPath)
		return nil, err
	}

	s.logger.Info("media imported", "media_id", media.ID, "filename", filename, "kind", media.Kind)
	return media, nil
}

// ImportBytes registers media received over the API rather than from disk.
func (s *Service) ImportBytes(ctx context.Context, filename string, data []byte) (*MediaFile, error) {
	if !IsMediaFile(filename) {
		return nil, fmt.Errorf("unsupported media type: %s", filepath.Ext(filename))
	}

	if err := os.MkdirAll(s.mediaDir, 0755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	destPath := filepath.Join(s.mediaDir, filepath.Base(filename))
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return nil, fmt.Errorf("write into library: %w", err)
	}

	existing, err := s.repo.GetMediaByPath(ctx, destPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	mime := ingest.DetectMIME(destPath, data)
	media := &MediaFile{
		ID:        uuid.NewString(),
		Filename:  filepath.Base(filename),
		Path:      destPath,
		MIME:      mime,
		Kind:      ingest.MediaKind(mime),
		SizeBytes: int64(len(data)),
		CreatedAt: time.Now(),
	}

	if err := s.repo.CreateMedia(ctx, media); err != nil {
		os.Remove(destPath)
		return nil, err
	}

	s.logger.Info("media imported", "media_id", media.ID, "filename", media.Filename, "kind", media.Kind)
	return media, nil
}

func (s *Service) Get(ctx context.Context, id string) (*MediaFile, error) {
	return s.repo.GetMedia(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*MediaFile, error) {
	return s.repo.ListMedia(ctx)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
