package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound 对象不存在，各存储实现统一返回此错误
var ErrObjectNotFound = errors.New("storage object not found")

// ObjectInfo 对象元信息
type ObjectInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Provider 存储提供者接口
// 所有存储实现只负责字节层面的读写，命名与校验由调用方完成
type Provider interface {
	// SaveWithContext 保存文件到存储
	SaveWithContext(ctx context.Context, identifier string, file io.Reader) error

	// GetWithContext 从存储获取文件，调用方负责关闭
	GetWithContext(ctx context.Context, identifier string) (io.ReadSeekCloser, error)

	// DeleteWithContext 从存储删除文件
	DeleteWithContext(ctx context.Context, identifier string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, identifier string) (bool, error)

	// List 列出存储中的全部对象
	List(ctx context.Context) ([]ObjectInfo, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}

type nopSeekCloser struct {
	io.ReadSeeker
}

func (nopSeekCloser) Close() error { return nil }
