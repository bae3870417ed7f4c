package templates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"devfest-certs/certificate-portal/certificate-portal-backend/internal/monitoring"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/storage"
)

// ErrTemplateUnavailable is returned when neither the active template nor the fallback file can be read.
var ErrTemplateUnavailable = errors.New("certificate template unavailable")

// ResolverConfig locates templates on disk and in object storage.
type ResolverConfig struct {
	// Dir is the base directory for FilePath sources and the fallback.
	Dir string
	// FallbackPath is read when the active source is missing or unreadable.
	FallbackPath string
	Bucket       string
	Timeout      time.Duration
}

// Resolver returns the bytes of the active certificate template.
type Resolver struct {
	repo    Repository
	objects storage.S3Client
	config  ResolverConfig
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewResolver creates a resolver. objects may be nil when no bucket is configured.
func NewResolver(repo Repository, objects storage.S3Client, config ResolverConfig, logger *zap.Logger, metrics *monitoring.Metrics) *Resolver {
	return &Resolver{
		repo:    repo,
		objects: objects,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// Resolve reads the active template, falling back to the configured default file.
func (r *Resolver) Resolve(ctx context.Context) ([]byte, error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	src, _, err := r.repo.Get(ctx)
	if err != nil {
		r.logger.Warn("Failed to load active template setting", zap.Error(err))
	}
	if src != nil {
		data, err := r.read(ctx, src)
		if err == nil && len(data) > 0 {
			r.metrics.ObserveTemplateSource(string(src.Kind()))
			return data, nil
		}
		if err == nil {
			err = errors.New("template is empty")
		}
		r.logger.Warn("Active template unreadable, using fallback",
			zap.String("kind", string(src.Kind())),
			zap.Error(err),
		)
	}

	data, err := r.readFile(r.config.FallbackPath)
	if err != nil || len(data) == 0 {
		r.logger.Error("Fallback template unreadable",
			zap.String("path", r.config.FallbackPath),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: no active template and fallback %q unreadable", ErrTemplateUnavailable, r.config.FallbackPath)
	}
	r.metrics.ObserveTemplateSource("fallback")
	return data, nil
}

func (r *Resolver) read(ctx context.Context, src Source) ([]byte, error) {
	switch s := src.(type) {
	case InlineBlob:
		return s.Data, nil
	case FilePath:
		return r.readFile(s.Path)
	case ObjectKey:
		return r.download(ctx, s.Key)
	}
	return nil, fmt.Errorf("unknown template source %T", src)
}

func (r *Resolver) readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("no path configured")
	}
	return os.ReadFile(TemplateFile(r.config.Dir, path))
}

func (r *Resolver) download(ctx context.Context, key string) ([]byte, error) {
	if r.objects == nil || r.config.Bucket == "" {
		return nil, errors.New("object storage not configured")
	}
	body, err := r.objects.Download(ctx, r.config.Bucket, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// TemplateFile maps a stored template path onto dir. Stored paths are always
// relative to dir; a leading slash is dropped.
func TemplateFile(dir, path string) string {
	return filepath.Join(dir, filepath.FromSlash(strings.TrimLeft(path, "/")))
}
