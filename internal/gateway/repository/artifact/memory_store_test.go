package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "b1", "index.html", []byte("<p>hi</p>")))
	require.NoError(t, s.Put(ctx, "b1", "/styles.css", []byte("p{}")))
	require.NoError(t, s.Put(ctx, "b2", "index.html", []byte("other")))

	got, err := s.Get(ctx, "b1", "index.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(got))

	got[0] = 'X'
	again, _ := s.Get(ctx, "b1", "index.html")
	assert.Equal(t, "<p>hi</p>", string(again))

	names, err := s.List(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"index.html", "styles.css"}, names)

	_, err = s.Get(ctx, "b1", "missing.js")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RejectsBadKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	assert.Error(t, s.Put(ctx, "", "a", nil))
	assert.Error(t, s.Put(ctx, "b", " ", nil))
	assert.Error(t, s.Put(ctx, "b", "../escape", nil))
	_, err := s.List(ctx, "")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Contains(t, ContentType("index.html"), "text/html")
	assert.Contains(t, ContentType("styles.css"), "text/css")
	assert.Equal(t, "application/octet-stream", ContentType("blob"))
}

func TestNewS3Store_Validation(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	assert.ErrorContains(t, err, "endpoint")
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "access key")
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "exports"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)
}
