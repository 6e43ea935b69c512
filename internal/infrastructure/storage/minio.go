package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/anishvdev/voiceforge/pkg/config"
)

// AudioStore wraps MinIO operations for generated and enrolled audio
// artifacts. Object names double as the artifact references handed to
// clients via /v1/audio/{object}.
type AudioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewAudioStore creates a MinIO-backed audio store and ensures the bucket
// exists.
func NewAudioStore(cfg *config.StorageConfig) (*AudioStore, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &AudioStore{
		client:    minioClient,
		bucket:    cfg.BucketName,
		publicURL: cfg.PublicURL,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return store, nil
}

func (s *AudioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// UploadAudio stores an audio artifact and returns its object name.
func (s *AudioStore) UploadAudio(ctx context.Context, objectName string, data []byte, format string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: ContentTypeForFormat(format)})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return objectName, nil
}

// PresignedGetURL returns a time-limited download URL for an artifact.
func (s *AudioStore) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectName, err)
	}
	if s.publicURL != "" {
		// Rewrite the internal endpoint to the externally reachable one.
		public, perr := url.Parse(s.publicURL)
		if perr == nil {
			u.Scheme = public.Scheme
			u.Host = public.Host
		}
	}
	return u.String(), nil
}

// RemoveObject deletes an artifact. Missing objects are not an error.
func (s *AudioStore) RemoveObject(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}

// Healthy reports whether the storage backend is reachable. Used by the
// readiness probe.
func (s *AudioStore) Healthy(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// ContentTypeForFormat maps an audio format name to its MIME type.
func ContentTypeForFormat(format string) string {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	case "m4a":
		return "audio/mp4"
	case "flac":
		return "audio/flac"
	case "ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
