package storage

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/webdav"
)

// newTestWebDAVServer 基于内存文件系统的 WebDAV 服务
func newTestWebDAVServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(&webdav.Handler{
		FileSystem: webdav.NewMemFS(),
		LockSystem: webdav.NewMemLS(),
	})
	t.Cleanup(srv.Close)
	return srv
}

func TestNewWebDAVStorage_Validation(t *testing.T) {
	_, err := NewWebDAVStorage(context.Background(), WebDAVConfig{URL: ""})
	assert.Error(t, err)
}

func TestWebDAVStorage_RoundTrip(t *testing.T) {
	srv := newTestWebDAVServer(t)
	ctx := context.Background()

	s, err := NewWebDAVStorage(ctx, WebDAVConfig{URL: srv.URL, RootPath: "/uploads/"})
	require.NoError(t, err)
	assert.Equal(t, "webdav", s.Name())

	require.NoError(t, s.SaveWithContext(ctx, "poster.png", strings.NewReader("data")))

	exists, err := s.Exists(ctx, "poster.png")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := s.GetWithContext(ctx, "poster.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	objects, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "poster.png", objects[0].Name)
	assert.Equal(t, int64(4), objects[0].Size)

	require.NoError(t, s.DeleteWithContext(ctx, "poster.png"))
	exists, err = s.Exists(ctx, "poster.png")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWebDAVStorage_Missing(t *testing.T) {
	srv := newTestWebDAVServer(t)
	ctx := context.Background()

	s, err := NewWebDAVStorage(ctx, WebDAVConfig{URL: srv.URL, RootPath: "uploads"})
	require.NoError(t, err)

	_, err = s.GetWithContext(ctx, "nope.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	err = s.DeleteWithContext(ctx, "nope.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestWebDAVStorage_CanceledContext(t *testing.T) {
	srv := newTestWebDAVServer(t)
	s, err := NewWebDAVStorage(context.Background(), WebDAVConfig{URL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.SaveWithContext(ctx, "a.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Health(ctx), context.Canceled)
}

func TestIsCollectionExistsError(t *testing.T) {
	assert.False(t, isCollectionExistsError(nil))
	assert.True(t, isCollectionExistsError(errors.New("MkdirAll /uploads: 405")))
	assert.True(t, isCollectionExistsError(errors.New("409 Conflict")))
	assert.False(t, isCollectionExistsError(errors.New("401 Unauthorized")))
}
