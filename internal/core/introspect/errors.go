package introspect

import "errors"

var (
	// ErrBindFailure 监听地址绑定失败
	ErrBindFailure = errors.New("introspect: bind failure")

	// ErrNoSource 缺少数据源
	ErrNoSource = errors.New("introspect: source is required")
)
