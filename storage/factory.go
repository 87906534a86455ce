package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/image-theatre/config"
)

// NewProvider 按配置创建存储提供者
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = "local"
	}

	log.Printf("[Storage] Initializing storage provider, type: %s", storageType)

	var (
		provider Provider
		err      error
	)
	switch storageType {
	case "local":
		provider, err = NewLocalStorage(cfg.StorageLocalPath)
	case "minio":
		provider, err = NewMinioStorage(ctx, MinioConfig{
			Endpoint:        cfg.StorageMinioEndpoint,
			AccessKeyID:     cfg.StorageMinioAccessID,
			SecretAccessKey: cfg.StorageMinioSecret,
			BucketName:      cfg.StorageMinioBucket,
			UseSSL:          cfg.StorageMinioUseSSL,
		})
	case "webdav":
		provider, err = NewWebDAVStorage(ctx, WebDAVConfig{
			URL:      cfg.StorageWebDAVURL,
			Username: cfg.StorageWebDAVUser,
			Password: cfg.StorageWebDAVPass,
			RootPath: cfg.StorageWebDAVRoot,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageType, err)
	}

	log.Printf("[Storage] Storage provider '%s' initialized successfully", provider.Name())
	return provider, nil
}
