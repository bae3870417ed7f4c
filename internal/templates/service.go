package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/pdf"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/storage"
)

var (
	// ErrInvalidTemplate is returned when an uploaded file is not a usable PDF.
	ErrInvalidTemplate = errors.New("template must be a readable PDF")
	// ErrInvalidPath is returned for empty paths or paths escaping the template directory.
	ErrInvalidPath = errors.New("invalid template path")
)

const objectName = "templates/certificate_template.pdf"

// ServiceConfig controls where uploads are stored.
type ServiceConfig struct {
	Bucket     string
	Prefix     string
	PresignTTL time.Duration
}

// Service manages the active certificate template.
type Service struct {
	repo    Repository
	objects storage.S3Client
	config  ServiceConfig
	logger  *zap.Logger
}

// NewService creates a template service. Uploads are stored inline unless
// objects is set and a bucket is configured.
func NewService(repo Repository, objects storage.S3Client, config ServiceConfig, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		objects: objects,
		config:  config,
		logger:  logger,
	}
}

// ObjectKey returns the key uploads are written to.
func (s *Service) ObjectKey() string {
	return s.config.Prefix + objectName
}

// Upload validates data and makes it the active template, replacing any previous one.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*Description, error) {
	if err := pdf.Validate(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	var src Source = InlineBlob{Data: data}
	if s.objects != nil && s.config.Bucket != "" {
		key := s.ObjectKey()
		if err := s.objects.Upload(ctx, s.config.Bucket, key, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to store template: %w", err)
		}
		src = ObjectKey{Key: key}
	}

	if err := s.repo.Save(ctx, src); err != nil {
		return nil, fmt.Errorf("failed to save template setting: %w", err)
	}

	s.logger.Info("Certificate template replaced",
		zap.String("filename", filename),
		zap.String("kind", string(src.Kind())),
		zap.Int("size", len(data)),
	)
	return s.Describe(ctx)
}

// SetPath points the active template at a file under the template directory.
func (s *Service) SetPath(ctx context.Context, p string) (*Description, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidPath)
	}
	for _, segment := range strings.Split(filepath.ToSlash(p), "/") {
		if segment == ".." {
			return nil, fmt.Errorf("%w: %q leaves the template directory", ErrInvalidPath, p)
		}
	}
	if err := s.repo.Save(ctx, FilePath{Path: p}); err != nil {
		return nil, fmt.Errorf("failed to save template setting: %w", err)
	}
	s.logger.Info("Certificate template path set", zap.String("path", p))
	return s.Describe(ctx)
}

// Describe reports the active template. Object templates include a presigned download URL.
func (s *Service) Describe(ctx context.Context) (*Description, error) {
	src, updatedAt, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load template setting: %w", err)
	}
	if src == nil {
		return &Description{}, nil
	}

	desc := &Description{Configured: true, Kind: src.Kind(), UpdatedAt: &updatedAt}
	switch v := src.(type) {
	case InlineBlob:
		desc.Size = len(v.Data)
	case FilePath:
		desc.Path = v.Path
	case ObjectKey:
		desc.Key = v.Key
		if s.objects != nil && s.config.Bucket != "" {
			url, err := s.objects.GetPresignedURL(ctx, s.config.Bucket, v.Key, s.config.PresignTTL)
			if err != nil {
				s.logger.Warn("Failed to presign template URL", zap.String("key", v.Key), zap.Error(err))
			} else {
				desc.DownloadURL = url
			}
		}
	}
	return desc, nil
}
