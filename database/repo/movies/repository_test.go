package movies

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/anoixa/image-theatre/database"
	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB 创建测试数据库（开启外键）
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedAuthor(t *testing.T, db *gorm.DB, name string) *models.Author {
	a := &models.Author{AuthorName: name}
	require.NoError(t, db.Create(a).Error)
	return a
}

func newMovie(title string, authorID uint) *models.Movie {
	m := &models.Movie{
		MovieTitle:   title,
		ImdbRating:   7.5,
		YearReleased: 1999,
		Budget:       1000,
		BoxOffice:    2500.5,
		Language:     "en",
	}
	m.SetAuthors(authorID)
	return m
}

func TestAddAndGetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	author := seedAuthor(t, db, "Lana")
	second := seedAuthor(t, db, "Lilly")

	m := newMovie("The Matrix", author.ID)
	m.SetAuthors(author.ID, second.ID)
	require.NoError(t, repo.Add(ctx, m))
	assert.NotZero(t, m.ID)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "The Matrix", got.MovieTitle)
	assert.Nil(t, got.MovieImage)
	assert.Len(t, got.MovieAuthors, 2)
	assert.Equal(t, author.ID, got.PrimaryAuthorID())
	assert.Empty(t, got.FileAttachments)
}

func TestAddUnknownAuthor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	m := newMovie("Orphan", 999)
	err := repo.Add(ctx, m)
	assert.ErrorIs(t, err, apperr.ErrConstraintViolation)
	assert.Zero(t, m.ID)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "movie row must be rolled back with its links")
}

func TestGetByIDMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	got, err := repo.GetByID(context.Background(), 42)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetAllEmpty(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestUpdateReplacesFieldsAndLinks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	first := seedAuthor(t, db, "First")
	second := seedAuthor(t, db, "Second")

	m := newMovie("Draft", first.ID)
	require.NoError(t, repo.Add(ctx, m))

	img := "old.png"
	m.MovieImage = &img
	m.MovieTitle = "Final"
	m.Language = ""
	m.ImdbRating = 0
	m.SetAuthors(second.ID)
	require.NoError(t, repo.Update(ctx, m))

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.MovieTitle)
	assert.Equal(t, "", got.Language)
	assert.Zero(t, got.ImdbRating)
	assert.Equal(t, "old.png", got.ImageName())
	require.Len(t, got.MovieAuthors, 1)
	assert.Equal(t, second.ID, got.PrimaryAuthorID())
}

func TestUpdateMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	author := seedAuthor(t, db, "A")

	m := newMovie("Ghost", author.ID)
	m.ID = 404
	err := repo.Update(context.Background(), m)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateWithAttachment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	author := seedAuthor(t, db, "A")

	m := newMovie("Poster", author.ID)
	require.NoError(t, repo.Add(ctx, m))

	img := "new.jpg"
	m.MovieImage = &img
	att := &models.FileAttachment{FilePath: "new.jpg", FileName: "poster.jpg"}
	require.NoError(t, repo.UpdateWithAttachment(ctx, m, att))
	assert.NotZero(t, att.ID)
	assert.Equal(t, m.ID, att.MovieID)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "new.jpg", got.ImageName())
	require.Len(t, got.FileAttachments, 1)
	assert.Equal(t, "poster.jpg", got.FileAttachments[0].FileName)
}

// 影片不存在时附件不得落库
func TestUpdateWithAttachmentRollsBack(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	author := seedAuthor(t, db, "A")

	m := newMovie("Ghost", author.ID)
	m.ID = 77
	att := &models.FileAttachment{FilePath: "x.png", FileName: "x.png"}
	err := repo.UpdateWithAttachment(context.Background(), m, att)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, att.ID)

	var count int64
	require.NoError(t, db.Model(&models.FileAttachment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	author := seedAuthor(t, db, "A")

	m := newMovie("Doomed", author.ID)
	require.NoError(t, repo.Add(ctx, m))
	require.NoError(t, db.Create(&models.FileAttachment{FilePath: "a.png", FileName: "a.png", MovieID: m.ID}).Error)
	require.NoError(t, db.Create(&models.FileAttachment{FilePath: "b.png", FileName: "b.png", MovieID: m.ID}).Error)

	require.NoError(t, repo.Delete(ctx, m.ID))

	var attachments, links int64
	require.NoError(t, db.Model(&models.FileAttachment{}).Count(&attachments).Error)
	require.NoError(t, db.Model(&models.MovieAuthor{}).Count(&links).Error)
	assert.Zero(t, attachments)
	assert.Zero(t, links)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	err := repo.Delete(context.Background(), 5)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestImageNames(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	author := seedAuthor(t, db, "A")

	img := "current.png"
	with := newMovie("With", author.ID)
	with.MovieImage = &img
	require.NoError(t, repo.Add(ctx, with))
	require.NoError(t, repo.Add(ctx, newMovie("Without", author.ID)))

	names, err := repo.ImageNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"current.png"}, names)
}
