package store

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

// MinioConfig locates an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	// CreateBucket creates the bucket on first use when it is missing.
	CreateBucket bool `yaml:"create_bucket"`
}

// Enabled reports whether an endpoint and bucket are configured.
func (c MinioConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// objectPutter is the part of the MinIO client the sink uses.
type objectPutter interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioSink uploads documents to an S3-compatible bucket.
type MinioSink struct {
	cfg    MinioConfig
	client objectPutter
}

// NewMinioSink connects to the configured endpoint. No request is made
// until the first Put.
func NewMinioSink(cfg MinioConfig) (*MinioSink, error) {
	if !cfg.Enabled() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "minio sink needs an endpoint and a bucket")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "minio client for %s", cfg.Endpoint)
	}
	return &MinioSink{cfg: cfg, client: client}, nil
}

// ObjectName returns the key a document called name is stored under.
func (s *MinioSink) ObjectName(name string) string {
	p := strings.Trim(s.cfg.Prefix, "/")
	if p == "" {
		return name
	}
	return path.Join(p, name)
}

// Put uploads r as bucket/prefix/name. S3 uploads are atomic, so a failed
// upload leaves no object.
func (s *MinioSink) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if s.cfg.CreateBucket {
		ok, err := s.client.BucketExists(ctx, s.cfg.Bucket)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeAssembly, err, "check bucket %s", s.cfg.Bucket)
		}
		if !ok {
			if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
				return "", errors.Wrap(errors.ErrCodeAssembly, err, "create bucket %s", s.cfg.Bucket)
			}
		}
	}

	object := s.ObjectName(name)
	info, err := s.client.PutObject(ctx, s.cfg.Bucket, object, r, size, minio.PutObjectOptions{
		ContentType:        ContentType,
		ContentDisposition: `attachment; filename="` + strings.ReplaceAll(name, `"`, "") + `"`,
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeAssembly, err, "upload %s", object)
	}
	return "s3://" + info.Bucket + "/" + info.Key, nil
}
