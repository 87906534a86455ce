// Package files 负责图片文件的命名、校验与删除，底层字节读写交给 storage.Provider
package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path"
	"strings"

	"github.com/anoixa/image-theatre/internal/apperr"
	"github.com/anoixa/image-theatre/storage"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// extFormats 扩展名与 image.DecodeConfig 返回格式的对应关系
var extFormats = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".bmp":  "bmp",
	".tif":  "tiff",
	".tiff": "tiff",
	".webp": "webp",
}

// Store 图片文件存储
type Store struct {
	provider storage.Provider
}

// NewStore 创建文件存储
func NewStore(provider storage.Provider) *Store {
	return &Store{provider: provider}
}

// Provider 返回底层存储提供者
func (s *Store) Provider() storage.Provider {
	return s.provider
}

// NormalizeExtension 扩展名统一为小写并带前导点
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// IsAllowedExtension 判断扩展名是否在允许列表中（大小写不敏感）
func IsAllowedExtension(ext string, allowed []string) bool {
	ext = NormalizeExtension(ext)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if NormalizeExtension(a) == ext {
			return true
		}
	}
	return false
}

// Save 校验扩展名与内容后以随机名称保存，返回生成的文件名
// 调用方提供的文件名从不参与存储路径
func (s *Store) Save(ctx context.Context, r io.Reader, declaredExtension string, allowed []string) (string, error) {
	ext := NormalizeExtension(declaredExtension)
	if !IsAllowedExtension(ext, allowed) {
		return "", apperr.InvalidInput("file extension %q is not allowed", declaredExtension)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", apperr.IOFailure("read upload", err)
	}
	if err := checkContent(data, ext); err != nil {
		return "", err
	}

	name := uuid.New().String() + ext
	if err := s.provider.SaveWithContext(ctx, name, bytes.NewReader(data)); err != nil {
		return "", apperr.IOFailure("save "+name, err)
	}
	return name, nil
}

// checkContent 确认内容是可解码的图片且格式与扩展名一致
func checkContent(data []byte, ext string) error {
	if len(data) == 0 {
		return apperr.InvalidInput("empty file")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return apperr.InvalidInput("content is not a supported image")
	}
	if want, ok := extFormats[ext]; ok && want != format {
		return apperr.InvalidInput("content is %s but extension is %s", format, ext)
	}
	return nil
}

func validateName(storedName string) error {
	if strings.TrimSpace(storedName) == "" {
		return apperr.InvalidInput("file name is empty")
	}
	if !storage.IsValidStoragePath(storedName) || path.Base(storedName) != storedName {
		return apperr.InvalidInput("file name %q is invalid", storedName)
	}
	return nil
}

func mapStorageError(op, storedName string, err error) error {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return apperr.NotFound("file %s", storedName)
	}
	return apperr.IOFailure(fmt.Sprintf("%s %s", op, storedName), err)
}

// Delete 删除文件，名称为空返回 ErrInvalidInput，文件不存在返回 ErrNotFound
func (s *Store) Delete(ctx context.Context, storedName string) error {
	if err := validateName(storedName); err != nil {
		return err
	}
	if err := s.provider.DeleteWithContext(ctx, storedName); err != nil {
		return mapStorageError("delete", storedName, err)
	}
	return nil
}

// Open 打开文件用于读取，调用方负责关闭
func (s *Store) Open(ctx context.Context, storedName string) (io.ReadSeekCloser, error) {
	if err := validateName(storedName); err != nil {
		return nil, err
	}
	rc, err := s.provider.GetWithContext(ctx, storedName)
	if err != nil {
		return nil, mapStorageError("open", storedName, err)
	}
	return rc, nil
}

// Exists 检查文件是否存在
func (s *Store) Exists(ctx context.Context, storedName string) (bool, error) {
	if err := validateName(storedName); err != nil {
		return false, err
	}
	ok, err := s.provider.Exists(ctx, storedName)
	if err != nil {
		return false, apperr.IOFailure("stat "+storedName, err)
	}
	return ok, nil
}

// List 列出全部已存储文件
func (s *Store) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	objects, err := s.provider.List(ctx)
	if err != nil {
		return nil, apperr.IOFailure("list files", err)
	}
	return objects, nil
}

// ContentType 根据文件扩展名返回 image/<ext>，jpg 返回 image/jpeg
func ContentType(storedName string) string {
	ext := strings.TrimPrefix(NormalizeExtension(path.Ext(storedName)), ".")
	switch ext {
	case "":
		return "application/octet-stream"
	case "jpg":
		return "image/jpeg"
	case "tif":
		return "image/tiff"
	default:
		return "image/" + ext
	}
}
