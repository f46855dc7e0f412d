package storage

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Options configures an S3Store. Endpoint and the static credentials are
// for S3-compatible services and tests; leave them empty for AWS.
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store keeps files as objects keyed <bucket>/<name> in one S3 bucket.
type S3Store struct {
	bucket   string
	uploader *s3manager.Uploader
	svc      *s3.S3
}

func NewS3Store(opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	cfg := &aws.Config{Region: aws.String(opts.Region)}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if opts.AccessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(opts.AccessKeyID, opts.SecretAccessKey, "")
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}

	return &S3Store{
		bucket:   opts.Bucket,
		uploader: s3manager.NewUploader(sess),
		svc:      s3.New(sess),
	}, nil
}

func (s *S3Store) Backend() string { return "s3" }

func (s *S3Store) key(bucket, name string) string {
	return path.Join(bucket, name)
}

func (s *S3Store) Save(ctx context.Context, bucket, name string, r io.Reader, contentType string) (err error) {
	defer func() { record(s.Backend(), "save", err) }()
	if err = checkName(bucket, name); err != nil {
		return err
	}

	in := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(bucket, name)),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	_, err = s.uploader.UploadWithContext(ctx, in)
	return err
}

func (s *S3Store) Open(ctx context.Context, bucket, name string) (_ io.ReadCloser, err error) {
	defer func() { record(s.Backend(), "open", err) }()
	if err = checkName(bucket, name); err != nil {
		return nil, err
	}

	out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(bucket, name)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, bucket, name string) (err error) {
	defer func() { record(s.Backend(), "delete", err) }()
	if err = checkName(bucket, name); err != nil {
		return err
	}

	_, err = s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(bucket, name)),
	})
	return err
}
