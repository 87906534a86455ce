package authors

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

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestAuthorCRUD(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	a := &models.Author{AuthorName: "Agnès Varda"}
	require.NoError(t, repo.Add(ctx, a))
	require.NotZero(t, a.ID)

	a.AuthorName = "Agnes Varda"
	require.NoError(t, repo.Update(ctx, a))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Agnes Varda", got.AuthorName)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, a.ID))
	got, err = repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAuthorMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	err := repo.Update(ctx, &models.Author{ID: 9, AuthorName: "nobody"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = repo.Delete(ctx, 9)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// 删除作者时级联删除其影片关联，影片本身保留
func TestDeleteAuthorCascadesLinks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	a := &models.Author{AuthorName: "A"}
	require.NoError(t, repo.Add(ctx, a))
	m := &models.Movie{MovieTitle: "M", YearReleased: 2000}
	require.NoError(t, db.Omit("MovieAuthors").Create(m).Error)
	require.NoError(t, db.Create(&models.MovieAuthor{MovieID: m.ID, AuthorID: a.ID, IsPrimary: true}).Error)

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.MovieAuthors, 1)

	require.NoError(t, repo.Delete(ctx, a.ID))

	var links, movies int64
	require.NoError(t, db.Model(&models.MovieAuthor{}).Count(&links).Error)
	require.NoError(t, db.Model(&models.Movie{}).Count(&movies).Error)
	assert.Zero(t, links)
	assert.Equal(t, int64(1), movies)
}
