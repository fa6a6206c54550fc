package service

import "errors"

// 业务哨兵错误，handler 层通过 errors.Is 映射为接口错误码。
var (
	// ErrInvalidUserInput 注册/登录入参缺失或非法
	ErrInvalidUserInput = errors.New("invalid user input")
	// ErrUsernameExists 用户名已存在
	ErrUsernameExists = errors.New("username already exists")
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserDisabled 账号已禁用
	ErrUserDisabled = errors.New("user disabled")
	// ErrNotFound 目标资源不存在
	ErrNotFound = errors.New("not found")

	// ErrInvalidCartItem 购物车行字段缺失、价格或数量非法
	ErrInvalidCartItem = errors.New("invalid cart item")
	// ErrCartLineNotFound 购物车行不存在（仅用于要求存在的操作）
	ErrCartLineNotFound = errors.New("cart line not found")
	// ErrEmptyGuestCart 游客购物车为空，调用方应将其视为无操作
	ErrEmptyGuestCart = errors.New("empty guest cart")
)
