package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"CadenzaFM/config"
	"CadenzaFM/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio initializes the MinIO client and ensures the bucket exists.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	logger.Info("minio client initialized",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return nil
}

// GetMinioClient returns the MinIO client instance, nil before InitMinio.
func GetMinioClient() *minio.Client {
	return minioClient
}

// UploadObject stores an object and returns its object path within the
// bucket.
func UploadObject(ctx context.Context, cfg *config.Config, objectPath, contentType string, r io.Reader, size int64) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("MinIO client not initialized")
	}

	_, err := minioClient.PutObject(ctx, cfg.MinioBucket, objectPath, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	return objectPath, nil
}

// GetObject opens an object for reading.
func GetObject(ctx context.Context, cfg *config.Config, objectPath string) (*minio.Object, error) {
	if minioClient == nil {
		return nil, fmt.Errorf("MinIO client not initialized")
	}
	return minioClient.GetObject(ctx, cfg.MinioBucket, objectPath, minio.GetObjectOptions{})
}

// ListObjects streams object infos under a prefix.
func ListObjects(ctx context.Context, cfg *config.Config, prefix string) <-chan minio.ObjectInfo {
	return minioClient.ListObjects(ctx, cfg.MinioBucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
}

// StaticPrefix marks media URLs that name bucket objects served
// through the app's own proxy rather than an external endpoint.
const StaticPrefix = "/static/"

// PublicURL builds the URL the browser uses to fetch an object. With
// no public base configured, objects are served through the app's own
// StaticPrefix proxy.
func PublicURL(cfg *config.Config, objectPath string) string {
	if cfg.MinioPublicURL != "" {
		return strings.TrimSuffix(cfg.MinioPublicURL, "/") + "/" + objectPath
	}
	return StaticPrefix + objectPath
}

// ReadStaticObject reads a StaticPrefix media URL straight from the
// bucket, bypassing the HTTP proxy.
func ReadStaticObject(ctx context.Context, cfg *config.Config, uri string) ([]byte, error) {
	object, err := GetObject(ctx, cfg, strings.TrimPrefix(uri, StaticPrefix))
	if err != nil {
		return nil, err
	}
	defer object.Close()
	return io.ReadAll(object)
}

// MediaReader resolves the non-HTTP media URLs the catalog emits:
// StaticPrefix URLs come straight from the bucket, anything else from
// the local filesystem. The playback engine and the lyric fetcher read
// catalog URLs through this.
func MediaReader(cfg *config.Config) func(uri string) ([]byte, error) {
	return func(uri string) ([]byte, error) {
		if strings.HasPrefix(uri, StaticPrefix) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return ReadStaticObject(ctx, cfg, uri)
		}
		return os.ReadFile(uri)
	}
}

// ContentTypeFor guesses the content type for a stored media object.
func ContentTypeFor(objectPath string) string {
	switch {
	case strings.HasSuffix(objectPath, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(objectPath, ".lrc"):
		return "text/plain; charset=utf-8"
	case strings.HasSuffix(objectPath, ".jpg"), strings.HasSuffix(objectPath, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(objectPath, ".png"):
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
