package swarmscope

import (
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Option 节点构造选项
type Option func(*options) error

// options 内部选项结构
type options struct {
	// fxLogger Fx 事件日志，默认丢弃
	fxLogger *zap.Logger

	// userFxOptions 用户追加的 Fx 选项
	userFxOptions []fx.Option
}

func defaultOptions() *options {
	return &options{
		fxLogger: zap.NewNop(),
	}
}

// WithFxLogger 将 Fx 装配事件输出到给定的 zap Logger
func WithFxLogger(l *zap.Logger) Option {
	return func(o *options) error {
		if l == nil {
			return errors.New("fx logger is nil")
		}
		o.fxLogger = l
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
//
// 可用于替换或装饰内部组件，也可以用 fx.Populate 取出组件。
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
