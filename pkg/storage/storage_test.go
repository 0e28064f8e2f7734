package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SaveOpenRemove(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocal(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	path, size, err := s.Save(ctx, "Rent Roll.PDF", strings.NewReader("%PDF-1.4 data"), 1024)
	require.NoError(t, err)
	assert.Equal(t, int64(13), size)
	assert.Equal(t, ".pdf", filepath.Ext(path))

	rc, err := s.Open(ctx, path)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 data", string(body))

	require.NoError(t, s.Remove(ctx, path))
	assert.ErrorIs(t, s.Remove(ctx, path), ErrNotFound)
	_, err = s.Open(ctx, path)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_SaveRejectsOversizedAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(dir)
	require.NoError(t, err)

	_, _, err = s.Save(context.Background(), "big.csv", strings.NewReader("0123456789"), 9)
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, size, err := s.Save(context.Background(), "exact.csv", strings.NewReader("0123456789"), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
}

func TestLocal_RefusesPathsOutsideDirectory(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	outside := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	_, err = s.Open(context.Background(), outside)
	assert.Error(t, err)
	assert.Error(t, s.Remove(context.Background(), outside))
	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr)
}

type fakeObjects struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_SaveOpenRemove(t *testing.T) {
	ctx := context.Background()
	fake := &fakeObjects{objects: map[string][]byte{}}
	s := newS3WithClient(fake, "abare")

	key, size, err := s.Save(ctx, "lease.docx", strings.NewReader("lease body"), 1024)
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
	assert.True(t, strings.HasPrefix(key, s3Prefix))
	assert.True(t, strings.HasSuffix(key, ".docx"))
	assert.Contains(t, fake.objects, "abare/"+key)

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "lease body", string(body))

	require.NoError(t, s.Remove(ctx, key))
	_, err = s.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3_SaveLimits(t *testing.T) {
	fake := &fakeObjects{objects: map[string][]byte{}}
	s := newS3WithClient(fake, "abare")

	_, _, err := s.Save(context.Background(), "big.pdf", strings.NewReader("0123456789"), 5)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Empty(t, fake.objects)

	fake.putErr = errors.New("bucket gone")
	_, _, err = s.Save(context.Background(), "small.pdf", strings.NewReader("0"), 5)
	assert.Error(t, err)
}
