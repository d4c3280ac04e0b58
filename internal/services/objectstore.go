package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/skybox-io/skybox/internal/pkg"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

// UploadSlot represents a reserved location in the object store together
// with a short-lived URL the client uploads the bytes to directly. File
// content never flows through this process.
type UploadSlot struct {
	Key       string    `json:"key"`
	Bucket    string    `json:"bucket"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ObjectStore represents the remote blob storage collaborator
type ObjectStore interface {
	AllocateUploadSlot(ctx context.Context, ownerID string, filename string, size int64, contentType string) (*UploadSlot, error)
	GetReadURL(ctx context.Context, bucket, key string) (string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

// ObjectStoreConfig represents object store configuration
type ObjectStoreConfig struct {
	Provider   string `json:"provider" yaml:"provider"`
	Bucket     string `json:"bucket" yaml:"bucket"`
	Region     string `json:"region" yaml:"region"`
	AccessKey  string `json:"access_key" yaml:"access_key"`
	SecretKey  string `json:"secret_key" yaml:"secret_key"`
	Endpoint   string `json:"endpoint,omitempty" yaml:"endpoint"`
	URLExpiry  int    `json:"url_expiry_seconds" yaml:"url_expiry_seconds"`
	MaxObjSize int64  `json:"max_object_size" yaml:"max_object_size"`
}

// NewObjectStore creates an object store for the configured provider
func NewObjectStore(config *ObjectStoreConfig) (ObjectStore, error) {
	switch strings.ToLower(config.Provider) {
	case "s3", "aws":
		return NewS3Store(config)
	case "spaces", "digitalocean":
		// DigitalOcean Spaces is S3-compatible
		if config.Endpoint == "" {
			config.Endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", config.Region)
		}
		return NewS3Store(config)
	default:
		return nil, fmt.Errorf("unsupported object store provider: %s", config.Provider)
	}
}

// S3Store implements ObjectStore on S3-compatible storage
type S3Store struct {
	s3Client   *s3.S3
	bucket     string
	urlExpiry  time.Duration
	maxObjSize int64
}

// NewS3Store creates a new S3-backed object store
func NewS3Store(config *ObjectStoreConfig) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String(config.Region),
		Endpoint: aws.String(config.Endpoint),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	expiry := time.Duration(config.URLExpiry) * time.Second
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &S3Store{
		s3Client:   s3.New(sess),
		bucket:     config.Bucket,
		urlExpiry:  expiry,
		maxObjSize: config.MaxObjSize,
	}, nil
}

// AllocateUploadSlot reserves a key and presigns a PUT URL for it. The key
// is namespaced per owner and never derived from the user-supplied name, so
// renames and duplicate names cannot collide in the bucket.
func (s *S3Store) AllocateUploadSlot(ctx context.Context, ownerID string, filename string, size int64, contentType string) (*UploadSlot, error) {
	if s.maxObjSize > 0 && size > s.maxObjSize {
		return nil, pkg.ErrInvalidInput.WithDetails(map[string]interface{}{
			"reason":   "object too large",
			"max_size": s.maxObjSize,
		})
	}

	key := fmt.Sprintf("%s/%s%s", ownerID, uuid.NewString(), path.Ext(filename))

	req, _ := s.s3Client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	req.SetContext(ctx)

	url, err := req.Presign(s.urlExpiry)
	if err != nil {
		return nil, pkg.ErrStorageProviderError.WithCause(err)
	}

	pkg.MetricUploadSlots.Inc()

	return &UploadSlot{
		Key:       key,
		Bucket:    s.bucket,
		UploadURL: url,
		ExpiresAt: time.Now().Add(s.urlExpiry),
	}, nil
}

// GetReadURL presigns a GET URL for an existing object
func (s *S3Store) GetReadURL(ctx context.Context, bucket, key string) (string, error) {
	if bucket == "" {
		bucket = s.bucket
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)

	url, err := req.Presign(s.urlExpiry)
	if err != nil {
		return "", pkg.ErrStorageProviderError.WithCause(err)
	}

	return url, nil
}

// DeleteObject removes an object from the bucket
func (s *S3Store) DeleteObject(ctx context.Context, bucket, key string) error {
	if bucket == "" {
		bucket = s.bucket
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return pkg.ErrStorageProviderError.WithCause(err)
	}

	return nil
}
