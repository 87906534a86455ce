package attachments

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/anoixa/image-theatre/database"
	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/internal/apperr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedMovie(t *testing.T, db *gorm.DB) *models.Movie {
	m := &models.Movie{MovieTitle: "M", YearReleased: 2001}
	require.NoError(t, db.Omit("MovieAuthors").Create(m).Error)
	return m
}

func TestAddAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	m := seedMovie(t, db)

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"a.png", "b.png", "c.png"} {
		att := &models.FileAttachment{FilePath: name, FileName: name, MovieID: m.ID, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Add(ctx, att))
	}

	list, err := repo.ListByMovieID(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a.png", list[0].FilePath)

	latest, err := repo.LatestByMovieID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "c.png", latest.FilePath)

	names, err := repo.FileNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.png", "b.png", "c.png"}, names)
}

func TestLatestByMovieIDNone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	m := seedMovie(t, db)

	latest, err := repo.LatestByMovieID(context.Background(), m.ID)
	assert.NoError(t, err)
	assert.Nil(t, latest)

	list, err := repo.ListByMovieID(context.Background(), m.ID)
	assert.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddUnknownMovie(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	err := repo.Add(context.Background(), &models.FileAttachment{FilePath: "x.png", FileName: "x.png", MovieID: 123})
	assert.ErrorIs(t, err, apperr.ErrConstraintViolation)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	m := seedMovie(t, db)

	att := &models.FileAttachment{FilePath: "x.png", FileName: "x.png", MovieID: m.ID}
	require.NoError(t, repo.Add(ctx, att))
	require.NoError(t, repo.Delete(ctx, att.ID))
	assert.ErrorIs(t, repo.Delete(ctx, att.ID), apperr.ErrNotFound)
}

// PostgreSQL 外键错误 (23503) 同样归类为 ErrConstraintViolation
func TestAddPostgresForeignKeyViolation(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "file_attachments"`)).
		WillReturnError(&pgconn.PgError{Code: "23503", Message: "insert or update on table \"file_attachments\" violates foreign key constraint"})

	repo := NewRepository(db)
	err = repo.Add(context.Background(), &models.FileAttachment{FilePath: "x.png", FileName: "x.png", MovieID: 1})
	assert.ErrorIs(t, err, apperr.ErrConstraintViolation)
	assert.ErrorIs(t, err, gorm.ErrForeignKeyViolated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
