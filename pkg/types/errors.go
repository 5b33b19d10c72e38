package types

import "errors"

// ============================================================================
//                              数据模型错误
// ============================================================================

var (
	// ErrEmptyName 空名称
	ErrEmptyName = errors.New("empty name")

	// ErrNameTooLong 名称过长
	ErrNameTooLong = errors.New("name too long")

	// ErrInvalidAccessLevel 无效作用域
	ErrInvalidAccessLevel = errors.New("invalid access level")

	// ErrInvalidKey 无效凭证
	ErrInvalidKey = errors.New("invalid registration key")

	// ErrInvalidLocation 无效位置
	ErrInvalidLocation = errors.New("invalid location")
)
