package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/echosavvy/api/internal/constants"
	"github.com/echosavvy/api/internal/logger"
	"github.com/echosavvy/api/internal/models"
	"github.com/echosavvy/api/internal/provider"
	"github.com/echosavvy/api/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskUserLoginLog, c.handleUserLoginLog)
}

func (c *Consumer) handleUserLoginLog(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_user_login_log_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.UserLoginLogPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_user_login_log_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.Username) == "" {
		logger.Debugw("worker_user_login_log_skip_invalid_payload", "user_id", payload.UserID)
		return nil
	}
	if c.UserLoginLogService == nil {
		logger.Warnw("worker_user_login_log_skip_service_nil", "username", payload.Username)
		return nil
	}
	entry := &models.UserLoginLog{
		UserID:      payload.UserID,
		Username:    payload.Username,
		Status:      payload.Status,
		FailReason:  payload.FailReason,
		ClientIP:    payload.ClientIP,
		UserAgent:   payload.UserAgent,
		LoginSource: constants.LoginSourceWeb,
		RequestID:   payload.RequestID,
	}
	if err := c.UserLoginLogService.Record(entry); err != nil {
		logger.Warnw("worker_user_login_log_record_failed",
			"username", payload.Username,
			"status", payload.Status,
			"error", err,
		)
		return err
	}
	return nil
}
