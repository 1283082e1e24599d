package instrumented

import "errors"

// ErrInvariantViolation 打开的连接在注册表中没有对应条目
var ErrInvariantViolation = errors.New("invariant violation: open connection without peer record")
