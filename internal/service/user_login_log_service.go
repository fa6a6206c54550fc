package service

import (
	"strings"

	"github.com/echosavvy/api/internal/constants"
	"github.com/echosavvy/api/internal/models"
	"github.com/echosavvy/api/internal/repository"
)

// UserLoginLogService 用户登录日志服务
type UserLoginLogService struct {
	logRepo repository.UserLoginLogRepository
}

// NewUserLoginLogService 创建用户登录日志服务
func NewUserLoginLogService(logRepo repository.UserLoginLogRepository) *UserLoginLogService {
	return &UserLoginLogService{logRepo: logRepo}
}

// Record 写入一条登录日志（由 worker 消费队列任务时调用）
func (s *UserLoginLogService) Record(log *models.UserLoginLog) error {
	if log == nil {
		return nil
	}
	if strings.TrimSpace(log.LoginSource) == "" {
		log.LoginSource = constants.LoginSourceWeb
	}
	return s.logRepo.Create(log)
}

// ListByUser 查询用户自己的登录日志
func (s *UserLoginLogService) ListByUser(userID uint, page, pageSize int) ([]models.UserLoginLog, int64, error) {
	if userID == 0 {
		return nil, 0, ErrNotFound
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return s.logRepo.ListByUser(userID, page, pageSize)
}
