package server

import "errors"

var (
	// ErrAlreadyStarted 服务已启动
	ErrAlreadyStarted = errors.New("server: already started")

	// ErrStopped 服务已停止（终态）
	ErrStopped = errors.New("server: stopped")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("server: invalid config")
)
