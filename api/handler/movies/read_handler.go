package movies

import (
	"errors"
	"net/http"
	"time"

	"github.com/anoixa/image-theatre/api/common"
	"github.com/anoixa/image-theatre/internal/apperr"
	"github.com/gin-gonic/gin"
)

// GetMovie 获取影片详情
// @Summary      Get movie
// @Tags         movies
// @Produce      json
// @Param        id  path  int  true  "Movie ID"
// @Success      200  {object}  common.Response{data=MovieResponse}
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /movies/{id} [get]
func (h *Handler) GetMovie(c *gin.Context) {
	id, ok := parseMovieID(c)
	if !ok {
		return
	}

	movie, err := h.svc.GetMovie(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			common.RespondError(c, http.StatusNotFound, movieNotFoundMessage(id))
			return
		}
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, toMovieResponse(movie))
}

// ListMovies 获取全部影片
// @Summary      List movies
// @Tags         movies
// @Produce      json
// @Success      200  {object}  common.Response{data=[]MovieResponse}
// @Security     BearerAuth
// @Router       /movies [get]
func (h *Handler) ListMovies(c *gin.Context) {
	movies, err := h.svc.ListMovies(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	resp := make([]MovieResponse, 0, len(movies))
	for _, m := range movies {
		resp = append(resp, toMovieResponse(m))
	}
	common.RespondSuccess(c, resp)
}

// ListAttachments 获取影片上传过的全部图片记录
// @Summary      List movie attachments
// @Tags         movies
// @Produce      json
// @Param        id  path  int  true  "Movie ID"
// @Success      200  {object}  common.Response{data=[]AttachmentResponse}
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /movies/{id}/attachments [get]
func (h *Handler) ListAttachments(c *gin.Context) {
	id, ok := parseMovieID(c)
	if !ok {
		return
	}

	attachments, err := h.svc.ListAttachments(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	resp := make([]AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		resp = append(resp, toAttachmentResponse(a))
	}
	common.RespondSuccess(c, resp)
}

// GetMovieImage 输出影片图片
// @Summary      Get movie image
// @Tags         movies
// @Produce      image/jpeg,image/png
// @Param        id  path  int  true  "Movie ID"
// @Success      200  {file}  binary
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /movies/{id}/image [get]
func (h *Handler) GetMovieImage(c *gin.Context) {
	id, ok := parseMovieID(c)
	if !ok {
		return
	}

	img, err := h.svc.GetMovieImage(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	defer img.Content.Close()

	c.Header("Content-Type", img.ContentType)
	c.Header("Cache-Control", "private, max-age=300")
	http.ServeContent(c.Writer, c.Request, img.Name, time.Time{}, img.Content)
}
