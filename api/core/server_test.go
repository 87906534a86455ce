package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anoixa/image-theatre/cache"
	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/database"
	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/database/repo/accounts"
	"github.com/anoixa/image-theatre/database/repo/attachments"
	"github.com/anoixa/image-theatre/database/repo/authors"
	"github.com/anoixa/image-theatre/database/repo/movies"
	_ "github.com/anoixa/image-theatre/docs"
	"github.com/anoixa/image-theatre/internal/auth"
	"github.com/anoixa/image-theatre/internal/catalog"
	"github.com/anoixa/image-theatre/internal/files"
	"github.com/anoixa/image-theatre/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router     *gin.Engine
	adminToken string
	userToken  string
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	provider, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	memory, err := cache.NewMemory(cache.DefaultMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = memory.Close() })

	svc := catalog.NewService(
		movies.NewRepository(db),
		authors.NewRepository(db),
		attachments.NewRepository(db),
		files.NewStore(provider),
		cache.NewMovieCache(memory, time.Minute),
		catalog.Options{},
	)

	jwtService, err := auth.NewJWTServiceWithConfig(auth.TokenConfig{
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:    "theatre-test",
		ExpiresIn: time.Hour,
	})
	require.NoError(t, err)

	cfg := &config.Config{
		RateLimitApiRPS:     1000,
		RateLimitApiBurst:   1000,
		RateLimitAuthRPS:    1000,
		RateLimitAuthBurst:  1000,
		RateLimitExpireTime: time.Minute,
		MaxConcurrency:      10,
	}

	router, cleanup := NewRouter(&ServerDependencies{
		DB:            db,
		Catalog:       svc,
		LoginService:  auth.NewLoginService(accounts.NewRepository(db), jwtService),
		Tokens:        jwtService,
		Storage:       provider,
		CacheProvider: memory,
		Config:        cfg,
	})
	t.Cleanup(cleanup)

	adminToken, _, err := jwtService.GenerateToken("admin", 1, models.RoleAdmin)
	require.NoError(t, err)
	userToken, _, err := jwtService.GenerateToken("viewer", 2, models.RoleUser)
	require.NoError(t, err)

	return &testServer{router: router, adminToken: adminToken, userToken: userToken}
}

func (s *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, token)
}

func (s *testServer) doForm(t *testing.T, method, target, token string, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if image != nil {
		part, err := writer.CreateFormFile("movie_image_file", "poster.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return s.do(req, token)
}

type envelope struct {
	Status string          `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) envelope {
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if dest != nil {
		require.NoError(t, json.Unmarshal(env.Data, dest))
	}
	return env
}

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (s *testServer) createAuthor(t *testing.T, name string) uint {
	w := s.doJSON(t, http.MethodPost, "/api/authors", s.adminToken, gin.H{"author_name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var author struct {
		ID uint `json:"id"`
	}
	decode(t, w, &author)
	return author.ID
}

func movieFields(authorID uint) map[string]string {
	return map[string]string{
		"movie_title":   "Metropolis",
		"imdb_rating":   "8.3",
		"year_released": "1927",
		"language":      "German",
		"author_id":     fmt.Sprint(authorID),
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil), "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"database": "ok", "cache": "ok", "storage": "ok"}, body.Checks)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestVersionAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/version", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), config.Version)

	w = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "theatre_http_requests_total")
}

func TestSwaggerDoc(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil), "")
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "/api", doc.BasePath)
	assert.Contains(t, doc.Paths, "/movies/{id}/image")
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/movies", nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/movies", nil), "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWritesRequireAdmin(t *testing.T) {
	s := newTestServer(t)

	w := s.doJSON(t, http.MethodPost, "/api/authors", s.userToken, gin.H{"author_name": "Fritz Lang"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.doForm(t, http.MethodPost, "/api/movies", s.userToken, movieFields(1), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/movies", nil), s.userToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMovieLifecycle(t *testing.T) {
	s := newTestServer(t)
	authorID := s.createAuthor(t, "Fritz Lang")

	w := s.doForm(t, http.MethodPost, "/api/movies", s.adminToken, movieFields(authorID), pngBytes(t))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID         uint    `json:"id"`
		MovieTitle string  `json:"movie_title"`
		AuthorID   uint    `json:"author_id"`
		MovieImage *string `json:"movie_image"`
	}
	decode(t, w, &created)
	assert.Equal(t, "Metropolis", created.MovieTitle)
	assert.Equal(t, authorID, created.AuthorID)
	require.NotNil(t, created.MovieImage)
	assert.True(t, strings.HasSuffix(*created.MovieImage, ".png"))

	target := fmt.Sprintf("/api/movies/%d", created.ID)

	w = s.do(httptest.NewRequest(http.MethodGet, target, nil), s.userToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, target+"/image", nil), s.userToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes(t), w.Body.Bytes())

	fields := movieFields(authorID)
	fields["movie_id"] = fmt.Sprint(created.ID + 1)
	w = s.doForm(t, http.MethodPut, target, s.adminToken, fields, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "does not match")

	fields["movie_id"] = fmt.Sprint(created.ID)
	fields["movie_title"] = "Metropolis (restored)"
	w = s.doForm(t, http.MethodPut, target, s.adminToken, fields, pngBytes(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(httptest.NewRequest(http.MethodGet, target+"/attachments", nil), s.userToken)
	require.Equal(t, http.StatusOK, w.Code)
	var list []struct {
		FilePath string `json:"file_path"`
	}
	decode(t, w, &list)
	assert.Len(t, list, 1)

	w = s.do(httptest.NewRequest(http.MethodDelete, target, nil), s.adminToken)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, target, nil), s.userToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMovieValidationErrors(t *testing.T) {
	s := newTestServer(t)
	authorID := s.createAuthor(t, "Agnès Varda")

	fields := movieFields(authorID)
	fields["year_released"] = "1850"
	w := s.doForm(t, http.MethodPost, "/api/movies", s.adminToken, fields, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doForm(t, http.MethodPost, "/api/movies", s.adminToken, movieFields(authorID), []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/movies/999", nil), s.adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/movies/abc", nil), s.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthorEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createAuthor(t, "Yasujirō Ozu")
	target := fmt.Sprintf("/api/authors/%d", id)

	w := s.doJSON(t, http.MethodPut, target, s.adminToken, gin.H{"id": id + 1, "author_name": "Ozu"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodPut, target, s.adminToken, gin.H{"id": id, "author_name": "Ozu"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(httptest.NewRequest(http.MethodGet, target, nil), s.userToken)
	require.Equal(t, http.StatusOK, w.Code)
	var author struct {
		AuthorName string `json:"author_name"`
	}
	decode(t, w, &author)
	assert.Equal(t, "Ozu", author.AuthorName)

	w = s.do(httptest.NewRequest(http.MethodDelete, target, nil), s.adminToken)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(httptest.NewRequest(http.MethodDelete, target, nil), s.adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSoleAuthorOfMovie(t *testing.T) {
	s := newTestServer(t)
	authorID := s.createAuthor(t, "Satyajit Ray")

	w := s.doForm(t, http.MethodPost, "/api/movies", s.adminToken, movieFields(authorID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/authors/%d", authorID), nil), s.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "only author")
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.doJSON(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "critic",
		"email":    "critic@example.com",
		"password": "popcorn1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "critic", "password": "popcorn1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		AccessToken string `json:"access_token"`
		Role        string `json:"role"`
	}
	decode(t, w, &login)
	assert.Equal(t, models.RoleUser, login.Role)
	require.True(t, strings.HasPrefix(login.AccessToken, "Bearer "))

	req := httptest.NewRequest(http.MethodGet, "/api/authors", nil)
	req.Header.Set("Authorization", login.AccessToken)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "critic", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthReportsBrokenStorage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", NewHealthHandler(nil, nil, nil).Handle)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(context.Background()))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not initialized")
}
