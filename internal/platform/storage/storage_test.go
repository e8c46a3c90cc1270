package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "audio/a.mp3", want: "audio/a.mp3"},
		{in: "/audio//a.mp3", want: "audio/a.mp3"},
		{in: "", wantErr: true},
		{in: "../etc/passwd", wantErr: true},
		{in: "audio/../../x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cleanKey(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "/uploads/")
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "audio/p1.mp3", strings.NewReader("ID3 data"), "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/audio/p1.mp3", url)

	data, err := os.ReadFile(filepath.Join(dir, "audio", "p1.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "ID3 data", string(data))

	require.NoError(t, s.Delete(context.Background(), "audio/p1.mp3"))
	_, err = os.Stat(filepath.Join(dir, "audio", "p1.mp3"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, s.Delete(context.Background(), "audio/p1.mp3"))
}

func TestLocalStorage_SaveCancelledRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Save(ctx, "audio/p2.mp3", strings.NewReader("data"), "audio/mpeg")
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(filepath.Join(dir, "audio", "p2.mp3"))
	assert.True(t, os.IsNotExist(statErr))
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*manager.UploadOutput), args.Error(1)
}

type mockDeleter struct {
	mock.Mock
}

func (m *mockDeleter) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func TestS3Storage_Save(t *testing.T) {
	up := &mockUploader{}
	up.On("Upload", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "podcasts" && *in.Key == "audio/p1.mp3" &&
			*in.ContentType == "audio/mpeg" && in.Body != nil
	})).Return(&manager.UploadOutput{}, nil)

	s := newS3Storage(up, &mockDeleter{}, "podcasts", "https://cdn.podpal.io")
	url, err := s.Save(context.Background(), "audio/p1.mp3", strings.NewReader("data"), "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.podpal.io/audio/p1.mp3", url)
	up.AssertExpectations(t)
}

func TestS3Storage_SaveError(t *testing.T) {
	up := &mockUploader{}
	up.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	s := newS3Storage(up, &mockDeleter{}, "podcasts", "")
	_, err := s.Save(context.Background(), "audio/p1.mp3", strings.NewReader("data"), "")
	assert.ErrorContains(t, err, "access denied")
}

func TestS3Storage_Delete(t *testing.T) {
	del := &mockDeleter{}
	del.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Bucket == "podcasts" && *in.Key == "covers/p1.png"
	})).Return(&s3.DeleteObjectOutput{}, nil)

	s := newS3Storage(&mockUploader{}, del, "podcasts", "")
	require.NoError(t, s.Delete(context.Background(), "covers/p1.png"))
	del.AssertExpectations(t)
}
