// Package catalog 维护影片、作者与图片文件之间的一致性
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"

	"github.com/anoixa/image-theatre/cache"
	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/internal/apperr"
	"github.com/anoixa/image-theatre/internal/files"
	"github.com/anoixa/image-theatre/utils"
)

// DefaultMaxUploadBytes 单个图片默认上限 1 MiB
const DefaultMaxUploadBytes int64 = 1 << 20

// DefaultAllowedExtensions 默认允许的图片扩展名
var DefaultAllowedExtensions = []string{".jpg", ".jpeg", ".png"}

// MovieStore 影片持久化
type MovieStore interface {
	Add(ctx context.Context, movie *models.Movie) error
	Update(ctx context.Context, movie *models.Movie) error
	UpdateWithAttachment(ctx context.Context, movie *models.Movie, attachment *models.FileAttachment) error
	GetByID(ctx context.Context, id uint) (*models.Movie, error)
	GetAll(ctx context.Context) ([]*models.Movie, error)
	Delete(ctx context.Context, id uint) error
}

// AuthorStore 作者持久化
type AuthorStore interface {
	Add(ctx context.Context, author *models.Author) error
	Update(ctx context.Context, author *models.Author) error
	GetByID(ctx context.Context, id uint) (*models.Author, error)
	GetAll(ctx context.Context) ([]*models.Author, error)
	Delete(ctx context.Context, id uint) error
}

// AttachmentStore 附件查询
type AttachmentStore interface {
	ListByMovieID(ctx context.Context, movieID uint) ([]*models.FileAttachment, error)
	LatestByMovieID(ctx context.Context, movieID uint) (*models.FileAttachment, error)
}

// FileStore 图片文件存储
type FileStore interface {
	Save(ctx context.Context, r io.Reader, declaredExtension string, allowed []string) (string, error)
	Delete(ctx context.Context, storedName string) error
	Open(ctx context.Context, storedName string) (io.ReadSeekCloser, error)
}

// MovieCache 影片详情缓存
type MovieCache interface {
	GetOrLoad(ctx context.Context, id uint, load cache.MovieLoader) (*models.Movie, error)
	Invalidate(ctx context.Context, ids ...uint)
}

// Upload 一次图片上传
// Size 为客户端声明的大小，未知时为 0
type Upload struct {
	Reader    io.Reader
	Size      int64
	FileName  string
	Extension string
}

// Image 影片图片
type Image struct {
	Name        string
	ContentType string
	Content     io.ReadSeekCloser
}

// Options 上传策略
type Options struct {
	MaxUploadBytes    int64
	AllowedExtensions []string
}

// Service 目录服务
type Service struct {
	movies      MovieStore
	authors     AuthorStore
	attachments AttachmentStore
	files       FileStore
	cache       MovieCache
	opts        Options
}

// NewService 创建目录服务，cache 为 nil 时不缓存
func NewService(movies MovieStore, authors AuthorStore, attachments AttachmentStore, fileStore FileStore, movieCache MovieCache, opts Options) *Service {
	if movieCache == nil {
		movieCache = cache.NewMovieCache(nil, 0)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = DefaultAllowedExtensions
	}
	return &Service{
		movies:      movies,
		authors:     authors,
		attachments: attachments,
		files:       fileStore,
		cache:       movieCache,
		opts:        opts,
	}
}

// Options 返回当前上传策略
func (s *Service) Options() Options {
	return s.opts
}

// saveUpload 校验大小与扩展名后写入文件存储
// 超限的上传在调用 Save 之前就被拒绝
func (s *Service) saveUpload(ctx context.Context, upload *Upload) (string, error) {
	if upload.Reader == nil {
		return "", apperr.InvalidInput("image content is missing")
	}
	if upload.Size > s.opts.MaxUploadBytes {
		return "", apperr.InvalidInput("file size should not exceed %d bytes", s.opts.MaxUploadBytes)
	}

	ext := upload.Extension
	if ext == "" {
		ext = path.Ext(upload.FileName)
	}
	if !files.IsAllowedExtension(ext, s.opts.AllowedExtensions) {
		return "", apperr.InvalidInput("file extension %q is not allowed", ext)
	}

	data, err := io.ReadAll(io.LimitReader(upload.Reader, s.opts.MaxUploadBytes+1))
	if err != nil {
		return "", apperr.IOFailure("read upload", err)
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		return "", apperr.InvalidInput("file size should not exceed %d bytes", s.opts.MaxUploadBytes)
	}
	if len(data) == 0 {
		return "", apperr.InvalidInput("image content is empty")
	}

	return s.files.Save(ctx, bytes.NewReader(data), ext, s.opts.AllowedExtensions)
}

// CreateMovie 创建影片，可附带图片
// 行写入失败时删除已保存的图片
func (s *Service) CreateMovie(ctx context.Context, fields MovieFields, upload *Upload) (*models.Movie, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	movie := &models.Movie{}
	fields.apply(movie)

	saga := newImageSaga("create", 0, s.files, "")
	if upload != nil {
		name, err := s.saveUpload(ctx, upload)
		if err != nil {
			return nil, err
		}
		saga.fileSaved(name)
		movie.MovieImage = &name
	}

	if err := s.movies.Add(ctx, movie); err != nil {
		saga.abandon(ctx, err)
		return nil, err
	}
	saga.committed(movie.ID)
	saga.reclaim(ctx)

	s.cache.Invalidate(utils.DetachedContext(ctx), movie.ID)
	log.Printf("[Catalog] Movie %d created", movie.ID)
	return movie, nil
}

// UpdateMovie 整体替换影片字段；有新图片时按 保存新文件 -> 提交行 -> 删除旧文件 的顺序执行
// 提交失败时删除新文件，影片仍指向原有文件
func (s *Service) UpdateMovie(ctx context.Context, id uint, fields MovieFields, upload *Upload) (*models.Movie, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	if existing == nil {
		return nil, apperr.NotFound("movie %d", id)
	}
	fields.apply(existing)
	defer s.cache.Invalidate(utils.DetachedContext(ctx), id)

	if upload == nil {
		if err := s.movies.Update(ctx, existing); err != nil {
			return nil, err
		}
		log.Printf("[Catalog] Movie %d updated", id)
		return existing, nil
	}

	oldImage := existing.MovieImage
	saga := newImageSaga("update", id, s.files, existing.ImageName())

	name, err := s.saveUpload(ctx, upload)
	if err != nil {
		return nil, err
	}
	saga.fileSaved(name)

	attachment := &models.FileAttachment{
		FilePath: name,
		FileName: sanitizeFileName(upload.FileName),
		MovieID:  id,
	}
	if attachment.FileName == "" {
		attachment.FileName = name
	}
	existing.MovieImage = &name

	if err := s.movies.UpdateWithAttachment(ctx, existing, attachment); err != nil {
		existing.MovieImage = oldImage
		saga.abandon(ctx, err)
		return nil, err
	}
	saga.committed(id)
	saga.reclaim(ctx)

	existing.FileAttachments = append(existing.FileAttachments, *attachment)
	log.Printf("[Catalog] Movie %d updated with new image %s", id, name)
	return existing, nil
}

// DeleteMovie 删除影片行（级联关联与附件），再删除当前图片文件
// 图片已不存在只记录日志
func (s *Service) DeleteMovie(ctx context.Context, id uint) error {
	existing, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get movie %d: %w", id, err)
	}
	if existing == nil {
		return apperr.NotFound("movie %d", id)
	}

	if err := s.movies.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(utils.DetachedContext(ctx), id)
	log.Printf("[Catalog] Movie %d deleted", id)

	name := existing.ImageName()
	if name == "" {
		return nil
	}
	if err := s.files.Delete(utils.DetachedContext(ctx), name); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Printf("[Catalog] Image %s of deleted movie %d was already missing", name, id)
		} else {
			log.Printf("[Catalog] Failed to delete image %s of movie %d: %v", name, id, err)
		}
	}
	return nil
}

// GetMovie 获取影片详情
func (s *Service) GetMovie(ctx context.Context, id uint) (*models.Movie, error) {
	movie, err := s.cache.GetOrLoad(ctx, id, func(ctx context.Context) (*models.Movie, error) {
		return s.movies.GetByID(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	if movie == nil {
		return nil, apperr.NotFound("movie %d", id)
	}
	return movie, nil
}

// ListMovies 获取全部影片
func (s *Service) ListMovies(ctx context.Context) ([]*models.Movie, error) {
	movies, err := s.movies.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

// ListAttachments 获取影片的全部附件记录
func (s *Service) ListAttachments(ctx context.Context, movieID uint) ([]*models.FileAttachment, error) {
	if _, err := s.GetMovie(ctx, movieID); err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByMovieID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("list attachments of movie %d: %w", movieID, err)
	}
	return attachments, nil
}

// GetMovieImage 读取影片当前图片，没有当前图片时退回最近一次上传的附件
// 文件名总是取自数据库，旧文件在提交后即被回收
// 调用方负责关闭 Content
func (s *Service) GetMovieImage(ctx context.Context, id uint) (*Image, error) {
	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	if movie == nil {
		return nil, apperr.NotFound("movie %d", id)
	}

	name := movie.ImageName()
	if name == "" {
		latest, err := s.attachments.LatestByMovieID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("latest attachment of movie %d: %w", id, err)
		}
		if latest == nil {
			return nil, apperr.NotFound("movie %d has no image", id)
		}
		name = latest.FilePath
	}

	content, err := s.files.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Image{
		Name:        name,
		ContentType: files.ContentType(name),
		Content:     content,
	}, nil
}

// CreateAuthor 创建作者
func (s *Service) CreateAuthor(ctx context.Context, name string) (*models.Author, error) {
	name, err := ValidateAuthorName(name)
	if err != nil {
		return nil, err
	}
	author := &models.Author{AuthorName: name}
	if err := s.authors.Add(ctx, author); err != nil {
		return nil, err
	}
	return author, nil
}

// UpdateAuthor 更新作者名，并使其关联影片的缓存失效
func (s *Service) UpdateAuthor(ctx context.Context, id uint, name string) (*models.Author, error) {
	name, err := ValidateAuthorName(name)
	if err != nil {
		return nil, err
	}
	author, err := s.GetAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	author.AuthorName = name
	if err := s.authors.Update(ctx, author); err != nil {
		return nil, err
	}
	s.cache.Invalidate(utils.DetachedContext(ctx), linkedMovieIDs(author)...)
	return author, nil
}

// GetAuthor 获取作者
func (s *Service) GetAuthor(ctx context.Context, id uint) (*models.Author, error) {
	author, err := s.authors.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get author %d: %w", id, err)
	}
	if author == nil {
		return nil, apperr.NotFound("author %d", id)
	}
	return author, nil
}

// ListAuthors 获取全部作者
func (s *Service) ListAuthors(ctx context.Context) ([]*models.Author, error) {
	authors, err := s.authors.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}

// DeleteAuthor 删除作者，其影片关联随之删除
// 作者是某部影片唯一的作者时拒绝删除，影片必须保留至少一位作者
func (s *Service) DeleteAuthor(ctx context.Context, id uint) error {
	author, err := s.GetAuthor(ctx, id)
	if err != nil {
		return err
	}
	for _, movieID := range linkedMovieIDs(author) {
		movie, err := s.movies.GetByID(ctx, movieID)
		if err != nil {
			return fmt.Errorf("get movie %d: %w", movieID, err)
		}
		if movie != nil && len(movie.MovieAuthors) <= 1 {
			return apperr.InvalidInput("author %d is the only author of movie %d", id, movieID)
		}
	}
	if err := s.authors.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(utils.DetachedContext(ctx), linkedMovieIDs(author)...)
	return nil
}

func linkedMovieIDs(author *models.Author) []uint {
	ids := make([]uint, 0, len(author.MovieAuthors))
	for _, link := range author.MovieAuthors {
		ids = append(ids, link.MovieID)
	}
	return ids
}
