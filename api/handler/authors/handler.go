package authors

import (
	"net/http"
	"strconv"
	"time"

	"github.com/anoixa/image-theatre/api/common"
	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/internal/catalog"
	"github.com/gin-gonic/gin"
)

// Handler 作者处理器
type Handler struct {
	svc *catalog.Service
}

// NewHandler 创建作者处理器
func NewHandler(svc *catalog.Service) *Handler {
	return &Handler{svc: svc}
}

type createAuthorRequest struct {
	AuthorName string `json:"author_name" binding:"required,max=100"`
}

type updateAuthorRequest struct {
	ID         uint   `json:"id" binding:"required"`
	AuthorName string `json:"author_name" binding:"required,max=100"`
}

// AuthorResponse 作者
type AuthorResponse struct {
	ID         uint      `json:"id"`
	AuthorName string    `json:"author_name"`
	MovieIDs   []uint    `json:"movie_ids"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toAuthorResponse(a *models.Author) AuthorResponse {
	resp := AuthorResponse{
		ID:         a.ID,
		AuthorName: a.AuthorName,
		MovieIDs:   make([]uint, 0, len(a.MovieAuthors)),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
	for _, link := range a.MovieAuthors {
		resp.MovieIDs = append(resp.MovieIDs, link.MovieID)
	}
	return resp
}

func parseAuthorID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		common.RespondError(c, http.StatusBadRequest, "Invalid author ID format")
		return 0, false
	}
	return uint(id), true
}

// CreateAuthor 创建作者
// @Summary      Create author
// @Tags         authors
// @Accept       json
// @Produce      json
// @Param        request  body  createAuthorRequest  true  "Author"
// @Success      201  {object}  common.Response{data=AuthorResponse}
// @Failure      400  {object}  common.Response
// @Security     BearerAuth
// @Router       /authors [post]
func (h *Handler) CreateAuthor(c *gin.Context) {
	var req createAuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	author, err := h.svc.CreateAuthor(c.Request.Context(), req.AuthorName)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondCreated(c, toAuthorResponse(author))
}

// UpdateAuthor 更新作者
// @Summary      Update author
// @Tags         authors
// @Accept       json
// @Produce      json
// @Param        id       path  int                  true  "Author ID"
// @Param        request  body  updateAuthorRequest  true  "Author"
// @Success      200  {object}  common.Response{data=AuthorResponse}
// @Failure      400  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /authors/{id} [put]
func (h *Handler) UpdateAuthor(c *gin.Context) {
	id, ok := parseAuthorID(c)
	if !ok {
		return
	}

	var req updateAuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID != id {
		common.RespondError(c, http.StatusBadRequest, "id in url and body does not match.")
		return
	}

	author, err := h.svc.UpdateAuthor(c.Request.Context(), id, req.AuthorName)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, toAuthorResponse(author))
}

// GetAuthor 获取作者
// @Summary      Get author
// @Tags         authors
// @Produce      json
// @Param        id  path  int  true  "Author ID"
// @Success      200  {object}  common.Response{data=AuthorResponse}
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /authors/{id} [get]
func (h *Handler) GetAuthor(c *gin.Context) {
	id, ok := parseAuthorID(c)
	if !ok {
		return
	}

	author, err := h.svc.GetAuthor(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, toAuthorResponse(author))
}

// ListAuthors 获取全部作者
// @Summary      List authors
// @Tags         authors
// @Produce      json
// @Success      200  {object}  common.Response{data=[]AuthorResponse}
// @Security     BearerAuth
// @Router       /authors [get]
func (h *Handler) ListAuthors(c *gin.Context) {
	authors, err := h.svc.ListAuthors(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	resp := make([]AuthorResponse, 0, len(authors))
	for _, a := range authors {
		resp = append(resp, toAuthorResponse(a))
	}
	common.RespondSuccess(c, resp)
}

// DeleteAuthor 删除作者
// @Summary      Delete author
// @Description  Refused while the author is the only author of a movie
// @Tags         authors
// @Param        id  path  int  true  "Author ID"
// @Success      204
// @Failure      400  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /authors/{id} [delete]
func (h *Handler) DeleteAuthor(c *gin.Context) {
	id, ok := parseAuthorID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteAuthor(c.Request.Context(), id); err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
