package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	panic("multipart not expected")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	panic("multipart not expected")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	panic("multipart not expected")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	panic("multipart not expected")
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	if _, ok := f.objects[key]; !ok {
		return nil, &types.NoSuchKey{}
	}
	delete(f.objects, key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	fake := newFakeS3()
	store := NewS3Store(fake, "course-materials", "eu-west-1", "")

	obj, err := store.Put(context.Background(), "u1/notes.txt", strings.NewReader("lecture notes"), 13, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "https://course-materials.s3.eu-west-1.amazonaws.com/u1/notes.txt", obj.URL)
	assert.Equal(t, "text/plain", fake.types["u1/notes.txt"])

	rc, err := store.Get(context.Background(), "u1/notes.txt")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "lecture notes", string(body))

	require.NoError(t, store.Delete(context.Background(), "u1/notes.txt"))
	require.NoError(t, store.Delete(context.Background(), "u1/notes.txt"))
}

func TestS3StorePublicURLOverride(t *testing.T) {
	store := NewS3Store(newFakeS3(), "bucket", "us-east-1", "https://cdn.example.com/materials")
	assert.Equal(t, "https://cdn.example.com/materials/a%20b/c.pdf", store.URL("a b/c.pdf"))
}
