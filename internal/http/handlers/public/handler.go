package public

import "github.com/echosavvy/api/internal/provider"

// Handler 前台接口处理器入口
// 说明：该处理器仅用于用户侧 API，user_id 一律取自鉴权中间件写入的上下文。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
