package storage

import (
	"context"
	"testing"

	"github.com/anoixa/image-theatre/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), &config.Config{StorageLocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())

	srv := newTestWebDAVServer(t)
	p, err = NewProvider(context.Background(), &config.Config{StorageType: "webdav", StorageWebDAVURL: srv.URL, StorageWebDAVRoot: "uploads"})
	require.NoError(t, err)
	assert.Equal(t, "webdav", p.Name())

	_, err = NewProvider(context.Background(), &config.Config{StorageType: "ftp"})
	assert.Error(t, err)
}
