package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/fishing-club-booking/internal/config"
)

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectUploader stores a blob and returns its public URL.
type ObjectUploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// LogoStorage validates club logos and hands them to the uploader.
type LogoStorage struct {
	uploader ObjectUploader
	maxBytes int64
}

// NewLogoStorage uses S3 when all AWS settings are present and the local
// upload directory otherwise.
func NewLogoStorage(cfg config.StorageConfig) (*LogoStorage, error) {
	max := cfg.MaxBytes
	if max <= 0 {
		max = 5 << 20
	}
	if cfg.UseS3() {
		sess, err := session.NewSession(&aws.Config{
			Region:      aws.String(cfg.AWSRegion),
			Credentials: credentials.NewStaticCredentials(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		})
		if err != nil {
			return nil, fmt.Errorf("create aws session: %w", err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("logo storage: s3")
		return &LogoStorage{uploader: &s3Uploader{
			up:     s3manager.NewUploader(sess),
			bucket: cfg.Bucket,
			region: cfg.AWSRegion,
		}, maxBytes: max}, nil
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	log.Warn().Str("dir", cfg.UploadDir).Msg("AWS S3 not configured; storing logos on local disk")
	return &LogoStorage{uploader: &localUploader{dir: cfg.UploadDir, baseURL: cfg.BaseURL}, maxBytes: max}, nil
}

func NewLogoStorageWith(up ObjectUploader, maxBytes int64) *LogoStorage {
	return &LogoStorage{uploader: up, maxBytes: maxBytes}
}

func (s *LogoStorage) MaxBytes() int64 { return s.maxBytes }

// StoreLogo reads at most maxBytes from r, checks that it is an image and
// uploads it under logos/<club>/.
func (s *LogoStorage) StoreLogo(ctx context.Context, clubID uint64, r io.Reader) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(body) == 0 {
		return "", invalid("file is empty")
	}
	if int64(len(body)) > s.maxBytes {
		return "", invalid("file exceeds %d bytes", s.maxBytes)
	}
	contentType := http.DetectContentType(body)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", invalid("unsupported file type %s", contentType)
	}
	key := fmt.Sprintf("logos/%d/%s%s", clubID, uuid.NewString(), ext)
	return s.uploader.Upload(ctx, key, contentType, body)
}

type s3Uploader struct {
	up     *s3manager.Uploader
	bucket string
	region string
}

func (u *s3Uploader) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := u.up.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key), nil
}

type localUploader struct {
	dir     string
	baseURL string
}

func (u *localUploader) Upload(_ context.Context, key, _ string, body []byte) (string, error) {
	dst := filepath.Join(u.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, body, 0o644); err != nil {
		return "", err
	}
	return strings.TrimRight(u.baseURL, "/") + "/" + path.Join("uploads", key), nil
}
