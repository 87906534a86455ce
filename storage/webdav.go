package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
	Timeout  time.Duration
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者，根目录不存在时自动创建
func NewWebDAVStorage(ctx context.Context, cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := strings.Trim(cfg.RootPath, "/")
	if rootPath != "" {
		rootPath = "/" + rootPath
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	s := &WebDAVStorage{client: client, rootPath: rootPath}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if rootPath != "" {
		err := runWithContext(ctx, func() error { return client.MkdirAll(rootPath, 0755) })
		if err != nil && !isCollectionExistsError(err) {
			return nil, fmt.Errorf("failed to create webdav root %s: %w", rootPath, err)
		}
	}
	if err := s.Health(ctx); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}

	return s, nil
}

// runWithContext gowebdav 不支持 context，放到 goroutine 中执行并等待取消
func runWithContext(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(storagePath string) string {
	return s.rootPath + "/" + strings.TrimLeft(storagePath, "/")
}

// isCollectionExistsError 判断是否为目录已存在的错误
func isCollectionExistsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, s := range []string{"already exists", "Conflict", "409", "Method Not Allowed", "405"} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}

// SaveWithContext 保存文件到 WebDAV
func (s *WebDAVStorage) SaveWithContext(ctx context.Context, storagePath string, file io.Reader) error {
	if err := checkPath(storagePath); err != nil {
		return err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read file content: %w", err)
	}

	fullPath := s.fullPath(storagePath)
	err = runWithContext(ctx, func() error {
		return s.client.Write(fullPath, data, 0644)
	})
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", storagePath, err)
	}
	return nil
}

// GetWithContext 从 WebDAV 获取文件
func (s *WebDAVStorage) GetWithContext(ctx context.Context, storagePath string) (io.ReadSeekCloser, error) {
	if err := checkPath(storagePath); err != nil {
		return nil, err
	}

	var data []byte
	err := runWithContext(ctx, func() error {
		var readErr error
		data, readErr = s.client.Read(s.fullPath(storagePath))
		return readErr
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("%s: %w", storagePath, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", storagePath, err)
	}
	return nopSeekCloser{bytes.NewReader(data)}, nil
}

// DeleteWithContext 从 WebDAV 删除文件
// gowebdav 删除不存在的路径时返回成功，这里先检查存在性
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, storagePath string) error {
	exists, err := s.Exists(ctx, storagePath)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", storagePath, ErrObjectNotFound)
	}

	err = runWithContext(ctx, func() error {
		return s.client.Remove(s.fullPath(storagePath))
	})
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", storagePath, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, storagePath string) (bool, error) {
	if err := checkPath(storagePath); err != nil {
		return false, err
	}

	var info os.FileInfo
	err := runWithContext(ctx, func() error {
		var statErr error
		info, statErr = s.client.Stat(s.fullPath(storagePath))
		return statErr
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// List 递归列出根目录下的全部文件
func (s *WebDAVStorage) List(ctx context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	var walk func(dir, prefix string) error
	walk = func(dir, prefix string) error {
		var entries []os.FileInfo
		err := runWithContext(ctx, func() error {
			var readErr error
			entries, readErr = s.client.ReadDir(dir)
			return readErr
		})
		if err != nil {
			return err
		}
		for _, e := range entries {
			name := path.Join(prefix, e.Name())
			if e.IsDir() {
				if err := walk(path.Join(dir, e.Name()), name); err != nil {
					return err
				}
				continue
			}
			objects = append(objects, ObjectInfo{Name: name, Size: e.Size(), ModTime: e.ModTime()})
		}
		return nil
	}

	root := s.rootPath
	if root == "" {
		root = "/"
	}
	if err := walk(root, ""); err != nil {
		return nil, fmt.Errorf("failed to list webdav root %s: %w", root, err)
	}
	return objects, nil
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	root := s.rootPath
	if root == "" {
		root = "/"
	}
	return runWithContext(ctx, func() error {
		_, err := s.client.ReadDir(root)
		return err
	})
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	return "webdav"
}
