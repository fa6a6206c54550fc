package public

import (
	"errors"

	"github.com/echosavvy/api/internal/constants"
	"github.com/echosavvy/api/internal/http/response"
	"github.com/echosavvy/api/internal/models"
	"github.com/echosavvy/api/internal/queue"
	"github.com/echosavvy/api/internal/service"

	"github.com/gin-gonic/gin"
)

// UserRegisterRequest 注册请求
type UserRegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserLoginRequest 登录请求
type UserLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserView 用户响应结构（不含敏感字段）
type UserView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
}

// UserRegister 用户注册
func (h *Handler) UserRegister(c *gin.Context) {
	var req UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	user, token, expiresAt, err := h.UserAuthService.Register(req.Username, req.Phone, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUserInput):
			respondError(c, response.CodeBadRequest, "all fields are required", nil)
		case errors.Is(err, service.ErrUsernameExists):
			respondError(c, response.CodeBadRequest, "username already exists", nil)
		default:
			respondError(c, response.CodeInternal, "register failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt.Unix(),
		"user":       toUserView(user),
	})
}

// UserLogin 用户登录
// 登录结果通过队列异步写入登录日志，队列不可用时静默跳过。
func (h *Handler) UserLogin(c *gin.Context) {
	var req UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	user, token, expiresAt, err := h.UserAuthService.Login(req.Username, req.Password)
	if err != nil {
		h.enqueueLoginLog(c, 0, req.Username, constants.LoginStatusFailed, loginFailReason(err))
		switch {
		case errors.Is(err, service.ErrInvalidUserInput):
			respondError(c, response.CodeBadRequest, "all fields are required", nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeUnauthorized, "invalid credentials", nil)
		case errors.Is(err, service.ErrUserDisabled):
			respondError(c, response.CodeUnauthorized, "account disabled", nil)
		default:
			respondError(c, response.CodeInternal, "login failed", err)
		}
		return
	}

	h.enqueueLoginLog(c, user.ID, user.Username, constants.LoginStatusSuccess, "")
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt.Unix(),
		"user":       toUserView(user),
	})
}

// GetCurrentUser 获取当前登录用户
func (h *Handler) GetCurrentUser(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	user, err := h.UserRepo.GetByID(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch user failed", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "user not found", nil)
		return
	}
	response.Success(c, toUserView(user))
}

// GetMyLoginLogs 查询当前用户的登录日志
func (h *Handler) GetMyLoginLogs(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	logs, total, err := h.UserLoginLogService.ListByUser(uid, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch login logs failed", err)
		return
	}
	totalPage := int64(0)
	if pageSize > 0 {
		totalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	response.SuccessWithPage(c, logs, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

func (h *Handler) enqueueLoginLog(c *gin.Context, userID uint, username, status, failReason string) {
	if h.QueueClient == nil {
		return
	}
	payload := queue.UserLoginLogPayload{
		UserID:     userID,
		Username:   username,
		Status:     status,
		FailReason: failReason,
		ClientIP:   c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		RequestID:  getRequestIDValue(c),
	}
	if err := h.QueueClient.EnqueueUserLoginLog(payload); err != nil {
		requestLog(c).Warnw("login_log_enqueue_failed", "username", username, "error", err)
	}
}

func loginFailReason(err error) string {
	if errors.Is(err, service.ErrUserDisabled) {
		return constants.LoginFailReasonUserDisabled
	}
	return constants.LoginFailReasonBadCredentials
}

func toUserView(user *models.User) UserView {
	if user == nil {
		return UserView{}
	}
	return UserView{
		ID:       user.ID,
		Username: user.Username,
		Phone:    user.Phone,
	}
}

func getRequestIDValue(c *gin.Context) string {
	if value, ok := c.Get("request_id"); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
