package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/cursor-usage-dashboard/internal/config"
)

type fakeClient struct {
	exists    bool
	existsErr error
	putErr    error
	made      []string
	puts      []minio.PutObjectOptions
	keys      []string
	checks    int
}

func (f *fakeClient) BucketExists(_ context.Context, _ string) (bool, error) {
	f.checks++
	return f.exists, f.existsErr
}

func (f *fakeClient) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	f.exists = true
	return nil
}

func (f *fakeClient) FPutObject(_ context.Context, _, object, _ string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	f.keys = append(f.keys, object)
	f.puts = append(f.puts, opts)
	return minio.UploadInfo{Key: object, Size: 42}, nil
}

func TestNew_Disabled(t *testing.T) {
	_, err := New(config.ObjectStoreConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNew_Configured(t *testing.T) {
	p, err := New(config.ObjectStoreConfig{Endpoint: "localhost:9000", Bucket: "reports", Prefix: "cursor"})
	require.NoError(t, err)
	assert.Equal(t, "cursor/dash.html", p.Key("/tmp/out/dash.html"))
}

func TestUpload(t *testing.T) {
	fake := &fakeClient{}
	p := newPublisher(fake, "reports", "cursor-reports")

	uri, err := p.Upload(context.Background(), "reports/cursor_analytics_qa_20260314_0930.html")
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/cursor-reports/cursor_analytics_qa_20260314_0930.html", uri)
	assert.Equal(t, []string{"reports"}, fake.made, "missing bucket is created")
	assert.Equal(t, contentType, fake.puts[0].ContentType)

	_, err = p.Upload(context.Background(), "reports/other.html")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.checks, "bucket is checked once")
}

func TestUpload_Errors(t *testing.T) {
	boom := errors.New("boom")

	p := newPublisher(&fakeClient{existsErr: boom}, "reports", "")
	_, err := p.Upload(context.Background(), "a.html")
	assert.ErrorIs(t, err, boom)

	p = newPublisher(&fakeClient{exists: true, putErr: boom}, "reports", "")
	_, err = p.Upload(context.Background(), "a.html")
	assert.ErrorIs(t, err, boom)
}
