package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/pipeline"
)

const fingerprintSize = 64 * 1024

var (
	ErrUnsupportedFormat = errors.New("unsupported media format")
	ErrNotFile           = errors.New("path is not a regular file")
)

type MediaService interface {
	Open(ctx context.Context, path string) (*Media, error)
	Get(ctx context.Context, id string) (*Media, error)
	Recent(ctx context.Context, limit int) ([]*Media, error)
}

type Service struct {
	repo   Repository
	ffmpeg pipeline.FFmpeg
	logger *slog.Logger
}

func NewService(repo Repository, ff pipeline.FFmpeg, logger *slog.Logger) *Service {
	if ff == nil {
		ff = pipeline.NewStubFFmpeg(logger)
	}
	return &Service{repo: repo, ffmpeg: ff, logger: logger}
}

// Open registers the file at path and returns its record with probed
// duration and frame rate. When ffmpeg is missing the record is still
// returned with zero metadata so the client can supply it later.
func (s *Service) Open(ctx context.Context, path string) (*Media, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFile
	}
	if !IsVideoFile(absPath) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(absPath))
	}

	fingerprint, err := computeFingerprint(absPath)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	existing, err := s.repo.GetMediaByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	m := &Media{
		ID:          NewID(),
		Path:        absPath,
		Filename:    filepath.Base(absPath),
		Size:        info.Size(),
		Mtime:       info.ModTime(),
		Fingerprint: fingerprint,
		OpenedAt:    now,
		CreatedAt:   now,
	}
	if existing != nil {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	}

	probe, err := s.ffmpeg.Probe(absPath)
	switch {
	case err == nil:
		m.Duration = probe.Duration
		m.FrameRate = probe.FrameRate
		m.Width = probe.Width
		m.Height = probe.Height
		m.Codec = probe.Codec
	case existing != nil:
		m.Duration = existing.Duration
		m.FrameRate = existing.FrameRate
		m.Width = existing.Width
		m.Height = existing.Height
		m.Codec = existing.Codec
	default:
		if s.logger != nil {
			s.logger.Warn("probe failed, metadata unknown", "path", absPath, "error", err)
		}
	}

	if err := s.repo.UpsertMedia(ctx, m); err != nil {
		return nil, fmt.Errorf("store media: %w", err)
	}

	if s.logger != nil {
		logging.WithMediaID(s.logger, m.ID).Info("media opened",
			"path", logging.SanitizePath(absPath),
			"duration", m.Duration,
			"frame_rate", m.FrameRate,
		)
	}
	return m, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Media, error) {
	return s.repo.GetMedia(ctx, id)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]*Media, error) {
	return s.repo.ListRecentMedia(ctx, limit)
}

func computeFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	lr := io.LimitReader(f, fingerprintSize)
	if _, err := io.Copy(h, lr); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
