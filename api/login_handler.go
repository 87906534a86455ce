package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/anoixa/image-theatre/api/common"
	"github.com/anoixa/image-theatre/internal/auth"
	"github.com/anoixa/image-theatre/utils"

	"github.com/gin-gonic/gin"
)

// LoginHandler 登录与注册处理器
type LoginHandler struct {
	loginService *auth.LoginService
}

// NewLoginHandler 使用 LoginService 创建处理器
func NewLoginHandler(loginService *auth.LoginService) *LoginHandler {
	return &LoginHandler{
		loginService: loginService,
	}
}

type userAuthRequestBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequestBody struct {
	Username string `json:"username" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

type loginResponse struct {
	AccessToken       string `json:"access_token"`
	AccessTokenExpiry int64  `json:"access_token_expiry"`
	Username          string `json:"username"`
	Role              string `json:"role"`
}

type registerResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// LoginHandlerFunc user login
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body  userAuthRequestBody  true  "Credentials"
// @Success      200  {object}  common.Response{data=loginResponse}
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Router       /auth/login [post]
func (h *LoginHandler) LoginHandlerFunc(context *gin.Context) {
	if h.loginService == nil {
		common.RespondError(context, http.StatusInternalServerError, "Login service not initialized")
		return
	}

	var req userAuthRequestBody
	if err := context.ShouldBindJSON(&req); err != nil {
		common.RespondError(context, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.loginService.Login(context.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.Printf("[Auth] Failed login for %s", utils.SanitizeLogUsername(req.Username))
			common.RespondError(context, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Printf("[Auth] Login error: %v", err)
		common.RespondError(context, http.StatusInternalServerError, "Internal server error")
		return
	}

	common.RespondSuccessMessage(context, "Login successful", loginResponse{
		AccessToken:       "Bearer " + result.AccessToken,
		AccessTokenExpiry: result.AccessTokenExpiry.Unix(),
		Username:          result.User.Username,
		Role:              result.User.Role,
	})
}

// RegisterHandlerFunc register a User-role account
// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body  registerRequestBody  true  "Account"
// @Success      201  {object}  common.Response{data=registerResponse}
// @Failure      400  {object}  common.Response
// @Failure      409  {object}  common.Response
// @Router       /auth/register [post]
func (h *LoginHandler) RegisterHandlerFunc(context *gin.Context) {
	if h.loginService == nil {
		common.RespondError(context, http.StatusInternalServerError, "Login service not initialized")
		return
	}

	var req registerRequestBody
	if err := context.ShouldBindJSON(&req); err != nil {
		common.RespondError(context, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.loginService.Register(context.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			common.RespondError(context, http.StatusConflict, "User already exists!")
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidCredentials):
			common.RespondError(context, http.StatusBadRequest, err.Error())
		default:
			log.Printf("[Auth] Register error: %v", err)
			common.RespondError(context, http.StatusInternalServerError, "User creation failed! Please check user details and try again.")
		}
		return
	}

	log.Printf("[Auth] User %s registered", utils.SanitizeLogUsername(user.Username))
	common.Respond(context, http.StatusCreated, "success", "User created successfully!", registerResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	})
}
