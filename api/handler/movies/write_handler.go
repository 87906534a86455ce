package movies

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/anoixa/image-theatre/api/common"
	"github.com/anoixa/image-theatre/internal/catalog"
	"github.com/anoixa/image-theatre/utils"
	"github.com/gin-gonic/gin"
)

// parseMovieID 解析路径中的影片 ID
func parseMovieID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		common.RespondError(c, http.StatusBadRequest, "Invalid movie ID format")
		return 0, false
	}
	return uint(id), true
}

// openUpload 读取可选的图片文件，未上传时返回 nil
func openUpload(c *gin.Context) (*catalog.Upload, func(), error) {
	header, err := c.FormFile(imageFormField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	closer := func() {
		if cerr := file.Close(); cerr != nil {
			log.Printf("[Movies] Failed to close upload %s: %v", utils.SanitizeLogMessage(header.Filename), cerr)
		}
	}
	return newUpload(file, header), closer, nil
}

func newUpload(file multipart.File, header *multipart.FileHeader) *catalog.Upload {
	return &catalog.Upload{
		Reader:   file,
		Size:     header.Size,
		FileName: header.Filename,
	}
}

// CreateMovie 创建影片
// @Summary      Create movie
// @Description  Create a movie, optionally with an image (jpg/jpeg/png, up to 1 MiB)
// @Tags         movies
// @Accept       multipart/form-data
// @Produce      json
// @Param        movie_title       formData  string   true   "Title"
// @Param        imdb_rating       formData  number   false  "IMDb rating (0-10)"
// @Param        year_released     formData  int      true   "Release year (1900-2100)"
// @Param        budget            formData  number   false  "Budget"
// @Param        box_office        formData  number   false  "Box office"
// @Param        language          formData  string   false  "Language"
// @Param        author_id         formData  int      true   "Primary author ID"
// @Param        movie_image_file  formData  file     false  "Movie image"
// @Success      201  {object}  common.Response{data=MovieResponse}
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      403  {object}  common.Response
// @Failure      500  {object}  common.Response
// @Security     BearerAuth
// @Router       /movies [post]
func (h *Handler) CreateMovie(c *gin.Context) {
	var form movieForm
	if err := c.ShouldBind(&form); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	upload, closeUpload, err := openUpload(c)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid image upload")
		return
	}
	defer closeUpload()

	movie, err := h.svc.CreateMovie(c.Request.Context(), form.fields(), upload)
	if err != nil {
		logWriteError(err, "[Movies] Create failed: %v")
		common.RespondAppError(c, err)
		return
	}

	common.RespondCreated(c, toMovieResponse(movie))
}

// UpdateMovie 更新影片
// @Summary      Update movie
// @Description  Replace all movie fields; a new image replaces the current one
// @Tags         movies
// @Accept       multipart/form-data
// @Produce      json
// @Param        id                path      int      true   "Movie ID"
// @Param        movie_id          formData  int      true   "Movie ID, must match the path"
// @Param        movie_title       formData  string   true   "Title"
// @Param        imdb_rating       formData  number   false  "IMDb rating (0-10)"
// @Param        year_released     formData  int      true   "Release year (1900-2100)"
// @Param        budget            formData  number   false  "Budget"
// @Param        box_office        formData  number   false  "Box office"
// @Param        language          formData  string   false  "Language"
// @Param        author_id         formData  int      true   "Primary author ID"
// @Param        movie_image_file  formData  file     false  "New movie image"
// @Success      200  {object}  common.Response{data=MovieResponse}
// @Failure      400  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Failure      500  {object}  common.Response
// @Security     BearerAuth
// @Router       /movies/{id} [put]
func (h *Handler) UpdateMovie(c *gin.Context) {
	id, ok := parseMovieID(c)
	if !ok {
		return
	}

	var form updateMovieForm
	if err := c.ShouldBind(&form); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if form.MovieID != id {
		common.RespondError(c, http.StatusBadRequest, "id in url and form body does not match.")
		return
	}

	upload, closeUpload, err := openUpload(c)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid image upload")
		return
	}
	defer closeUpload()

	movie, err := h.svc.UpdateMovie(c.Request.Context(), id, form.fields(), upload)
	if err != nil {
		logWriteError(err, "[Movies] Update %d failed: %v", id)
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, toMovieResponse(movie))
}

// DeleteMovie 删除影片
// @Summary      Delete movie
// @Description  Delete a movie together with its author links, attachments and current image
// @Tags         movies
// @Param        id  path  int  true  "Movie ID"
// @Success      204
// @Failure      404  {object}  common.Response
// @Failure      500  {object}  common.Response
// @Security     BearerAuth
// @Router       /movies/{id} [delete]
func (h *Handler) DeleteMovie(c *gin.Context) {
	id, ok := parseMovieID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteMovie(c.Request.Context(), id); err != nil {
		logWriteError(err, "[Movies] Delete %d failed: %v", id)
		common.RespondAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// logWriteError 客户端取消的请求不记录
func logWriteError(err error, format string, args ...interface{}) {
	if utils.IsContextCanceled(err) {
		return
	}
	log.Printf(format, append(args, err)...)
}

func movieNotFoundMessage(id uint) string {
	return fmt.Sprintf("Movie with id: %d does not found", id)
}
