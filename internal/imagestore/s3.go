package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"gallery-go/internal/gallery"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the part of the S3 client the store uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Uploader is the part of the S3 upload manager the store uses.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Options configures an S3Store.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // set for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store keeps one object per photo at <prefix><photo id>.
type S3Store struct {
	client   S3API
	uploader Uploader
	bucket   string
	prefix   string
}

// NewS3Store builds an S3 client from opts. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 image store requires s3_bucket to be set")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StoreWithClient(client, manager.NewUploader(client), opts.Bucket, opts.Prefix), nil
}

// NewS3StoreWithClient wires a store to an existing client and uploader.
func NewS3StoreWithClient(client S3API, uploader Uploader, bucket, prefix string) *S3Store {
	return &S3Store{client: client, uploader: uploader, bucket: bucket, prefix: prefix}
}

func (s *S3Store) key(photoID string) string {
	if s.prefix == "" {
		return photoID
	}
	return path.Join(s.prefix, photoID)
}

// Put uploads the image for photoID, replacing any existing object.
func (s *S3Store) Put(photoID string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	_, err = s.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(photoID)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("uploading image %s: %w", photoID, err)
	}
	return nil
}

// Get downloads the image for photoID into w. It reports false if there is no such object.
func (s *S3Store) Get(photoID string, w io.Writer) (bool, error) {
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(photoID)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return false, nil
		}
		return false, fmt.Errorf("downloading image %s: %w", photoID, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return false, fmt.Errorf("failed to read image: %w", err)
	}
	return true, nil
}

// Delete removes the object for photoID. S3 treats missing keys as deleted.
func (s *S3Store) Delete(photoID string) error {
	_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(photoID)),
	})
	if err != nil {
		return fmt.Errorf("deleting image %s: %w", photoID, err)
	}
	return nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (s *S3Store) ValidateSetup() error {
	if _, err := s.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	}); err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

var _ gallery.ImageStore = (*S3Store)(nil)
