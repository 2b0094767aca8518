package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MinIOOptions configures an S3-compatible object store.
type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally reachable bucket URL. When empty, URLs are
	// built from the endpoint as {scheme}://{endpoint}/{bucket}.
	PublicURL string
}

// MinIOStorage stores rasters as objects in a single bucket.
type MinIOStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIOStorage connects to the endpoint and makes sure the bucket exists.
func NewMinIOStorage(ctx context.Context, opts MinIOOptions) (*MinIOStorage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client for %s: %w", opts.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", opts.Bucket, err)
		}
		log.Info().Str("bucket", opts.Bucket).Msg("created upload bucket")
	}

	public := strings.TrimRight(opts.PublicURL, "/")
	if public == "" {
		public = client.EndpointURL().String() + "/" + opts.Bucket
	}
	return &MinIOStorage{client: client, bucket: opts.Bucket, publicURL: public}, nil
}

func (s *MinIOStorage) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", name, err)
	}
	return s.publicURL + "/" + name, nil
}

func (s *MinIOStorage) Remove(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.publicURL+"/") {
		return fmt.Errorf("url %q is not managed by this storage", url)
	}
	name, err := cleanName(path.Base(url))
	if err != nil {
		return err
	}
	// RemoveObject succeeds for keys that do not exist.
	return s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
}
