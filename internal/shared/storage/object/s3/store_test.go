package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"applykit-backend/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "users/u1/applicationKits/k1/resume.txt", want: "users/u1/applicationKits/k1/resume.txt"},
		{name: "simple prefix", prefix: "root", key: "users/u1/a.txt", want: "root/users/u1/a.txt"},
		{name: "prefix trailing slash", prefix: "root/", key: "users/u1/a.txt", want: "root/users/u1/a.txt"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/users/u1/a.txt", want: "root/users/u1/a.txt"},
		{name: "nested prefix", prefix: "root/sub", key: "users/u1/a.txt", want: "root/sub/users/u1/a.txt"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

type fakeS3 struct {
	objects map[string]string
	puts    []*s3.PutObjectInput
	deletes []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = string(body)
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestStoreRoundTripWithPrefixAndEncryption(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := &Store{client: fake, bucket: "kits", prefix: "prod", kmsKeyID: "kms-1"}

	n, err := store.Put(ctx, "users/u1/applicationKits/k1/coverLetter.txt", "text/plain; charset=utf-8", strings.NewReader("Dear team"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if n != int64(len("Dear team")) {
		t.Fatalf("unexpected size %d", n)
	}
	if len(fake.puts) != 1 {
		t.Fatalf("expected one put, got %d", len(fake.puts))
	}
	put := fake.puts[0]
	if aws.ToString(put.Key) != "prod/users/u1/applicationKits/k1/coverLetter.txt" {
		t.Fatalf("unexpected key %q", aws.ToString(put.Key))
	}
	if put.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(put.SSEKMSKeyId) != "kms-1" {
		t.Fatalf("expected kms encryption, got %v", put.ServerSideEncryption)
	}

	rc, err := store.Open(ctx, "users/u1/applicationKits/k1/coverLetter.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "Dear team" {
		t.Fatalf("unexpected body %q", body)
	}

	if err := store.Delete(ctx, "users/u1/applicationKits/k1/coverLetter.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, "users/u1/applicationKits/k1/coverLetter.txt"); !errors.Is(err, object.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestStoreDefaultsToAES256(t *testing.T) {
	fake := newFakeS3()
	store := &Store{client: fake, bucket: "kits"}
	if _, err := store.Put(context.Background(), "a.txt", "text/plain", strings.NewReader("x")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if fake.puts[0].ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256, got %v", fake.puts[0].ServerSideEncryption)
	}
}

func TestLocatorAndPresignedURL(t *testing.T) {
	var gotKey string
	var gotTTL time.Duration
	store := &Store{
		client: newFakeS3(),
		bucket: "kits",
		prefix: "prod",
		presign: func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
			gotKey, gotTTL = key, ttl
			return "https://kits.s3.amazonaws.com/" + key + "?sig=1", nil
		},
	}

	if got := store.Locator("users/u1/a.txt"); got != "s3://kits/prod/users/u1/a.txt" {
		t.Fatalf("unexpected locator %q", got)
	}
	u, err := store.URL(context.Background(), "users/u1/a.txt", 0)
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if gotKey != "prod/users/u1/a.txt" || gotTTL != 15*time.Minute {
		t.Fatalf("unexpected presign args key=%q ttl=%s", gotKey, gotTTL)
	}
	if !strings.HasPrefix(u, "https://") {
		t.Fatalf("unexpected url %q", u)
	}
}
