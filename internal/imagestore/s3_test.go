package imagestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 is an in-memory bucket standing in for both the client and the upload manager.
type fakeS3 struct {
	objects   map[string][]byte
	bucketErr error
	lastKey   string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.lastKey = aws.ToString(in.Key)
	f.objects[f.lastKey] = data
	return &manager.UploadOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketErr != nil {
		return nil, f.bucketErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Store_RoundTrip(t *testing.T) {
	fake := newFakeS3()
	s := NewS3StoreWithClient(fake, fake, "photos", "gallery/")

	if err := s.Put("photo-1", strings.NewReader("jpeg bytes"), 10); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastKey != "gallery/photo-1" {
		t.Errorf("object key = %q, want %q", fake.lastKey, "gallery/photo-1")
	}

	var buf bytes.Buffer
	found, err := s.Get("photo-1", &buf)
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v; want true, nil", found, err)
	}
	if buf.String() != "jpeg bytes" {
		t.Errorf("Get() = %q, want %q", buf.String(), "jpeg bytes")
	}

	if err := s.Delete("photo-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	found, err = s.Get("photo-1", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if found {
		t.Error("Get() found = true after delete")
	}
}

func TestS3Store_NoPrefix(t *testing.T) {
	fake := newFakeS3()
	s := NewS3StoreWithClient(fake, fake, "photos", "")

	s.Put("photo-1", strings.NewReader("x"), 1)
	if fake.lastKey != "photo-1" {
		t.Errorf("object key = %q, want %q", fake.lastKey, "photo-1")
	}
}

func TestS3Store_SizeMismatch(t *testing.T) {
	fake := newFakeS3()
	s := NewS3StoreWithClient(fake, fake, "photos", "")

	if err := s.Put("photo-1", strings.NewReader("abc"), 5); err == nil {
		t.Fatal("Put() expected size mismatch error")
	}
	if len(fake.objects) != 0 {
		t.Errorf("objects = %d after failed Put, want 0", len(fake.objects))
	}
}

func TestS3Store_ValidateSetup(t *testing.T) {
	fake := newFakeS3()
	s := NewS3StoreWithClient(fake, fake, "photos", "")

	if err := s.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	fake.bucketErr = errors.New("forbidden")
	if err := s.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error for inaccessible bucket")
	}
}
