package storage

import "errors"

var (
	// ErrClosed 存储已关闭
	ErrClosed = errors.New("storage: closed")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("storage: invalid config")

	// ErrCorrupted 数据损坏
	ErrCorrupted = errors.New("storage: corrupted record")
)
