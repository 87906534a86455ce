package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/anoixa/image-theatre/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		DBType:           "sqlite",
		DBFilePath:       filepath.Join(dir, "theatre.db"),
		StorageType:      "local",
		StorageLocalPath: filepath.Join(dir, "uploads"),
		CacheType:        "memory",
		JWTIssuer:        "theatre-test",
	}
}

func TestContainerInit(t *testing.T) {
	c := NewContainer(testConfig(t))
	ctx := context.Background()

	require.NoError(t, c.InitDatabase())
	require.NoError(t, c.AutoMigrate())
	require.NoError(t, c.InitServices(ctx))
	t.Cleanup(func() { assert.NoError(t, c.Close()) })

	assert.NotNil(t, c.DB())
	assert.Equal(t, "local", c.Storage().Name())
	assert.Equal(t, "memory", c.CacheProvider().Name())
	assert.NotNil(t, c.Catalog())
	assert.NotNil(t, c.LoginService())
	assert.NotNil(t, c.JWTService())
	assert.Equal(t, int64(1<<20), c.Catalog().Options().MaxUploadBytes)

	password, err := c.AccountsRepo.CreateDefaultAdminUser(ctx)
	require.NoError(t, err)
	_, err = c.LoginService().Login(ctx, "admin", password)
	assert.NoError(t, err)
}

func TestContainerRejectsUnknownStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = "ftp"
	c := NewContainer(cfg)

	require.NoError(t, c.InitDatabase())
	t.Cleanup(func() { _ = c.Close() })
	assert.Error(t, c.InitServices(context.Background()))
}

func TestInitServicesRequiresDatabase(t *testing.T) {
	c := NewContainer(testConfig(t))
	assert.Error(t, c.InitServices(context.Background()))
}
