package blobstore

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
	"github.com/vk/blockflow/internal/ctxlog"
)

// S3Config describes an S3 bucket. Endpoint and static keys are optional;
// without keys the default AWS credential chain is used.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// S3Store keeps objects in one S3 bucket.
type S3Store struct {
	bucket   string
	client   *s3.S3
	uploader *s3manager.Uploader
}

// NewS3Store creates an S3 session for the bucket.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create aws session")
	}
	return &S3Store{
		bucket:   cfg.Bucket,
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
	}, nil
}

// Put uploads the stream with a multipart-capable uploader.
func (s *S3Store) Put(ctx context.Context, r io.Reader, name string) (string, error) {
	if name == "" {
		name = NewObjectName("mp3")
	}
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	logger := ctxlog.FromContext(ctx).With("store", "s3", "bucket", s.bucket, "key", name)
	logger.Debug("Uploading object.")

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
		Body:   r,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload object %s", name)
	}
	logger.Debug("Object uploaded.")
	return name, nil
}

// SignedURL presigns a GET request for the object.
func (s *S3Store) SignedURL(ctx context.Context, name string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	url, err := req.Presign(expiry)
	if err != nil {
		return "", errors.Wrapf(err, "failed to presign object %s", name)
	}
	return url, nil
}
