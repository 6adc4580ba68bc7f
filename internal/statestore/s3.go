package statestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vk/ecow/internal/fingerprint"
)

const stateObjectName = "fingerprints.json"

// S3Config configures the S3 backend.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3 stores the state document as an object in an S3 compatible bucket.
type S3 struct {
	client     *minio.Client
	bucketName string
	region     string
	key        string

	initOnce sync.Once
	initErr  error
}

// NewS3 creates the client. No request is made until the first Load or Save.
func NewS3(cfg S3Config) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3{
		client:     client,
		bucketName: bucket,
		region:     region,
		key:        objectKey(cfg.Prefix),
	}, nil
}

// Key returns the object key the state document is stored under.
func (s *S3) Key() string { return s.key }

func (s *S3) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Load implements fingerprint.Store.
func (s *S3) Load(ctx context.Context) (fingerprint.Map, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return fingerprint.Map{}, nil
		}
		return nil, err
	}
	m, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decoding s3://%s/%s: %w", s.bucketName, s.key, err)
	}
	return m, nil
}

// Save implements fingerprint.Store.
func (s *S3) Save(ctx context.Context, m fingerprint.Map) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	data, err := encodeDocument(m)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucketName, s.key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func objectKey(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return stateObjectName
	}
	return prefix + "/" + stateObjectName
}
