package constants

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 登录日志状态常量
const (
	LoginStatusSuccess = "success"
	LoginStatusFailed  = "failed"
)

// 登录失败原因常量
const (
	LoginFailReasonBadCredentials = "bad_credentials"
	LoginFailReasonUserDisabled   = "user_disabled"
)

// 登录来源常量
const (
	LoginSourceWeb = "web"
)

// 队列名称常量
const (
	QueueDefault = "default"
)

// 异步任务类型常量
const (
	TaskUserLoginLog = "user:login_log"
)
