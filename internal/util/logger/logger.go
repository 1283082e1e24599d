// Package logger 提供 swarmscope 的统一日志系统
//
// 基于标准库 log/slog，支持按子系统配置日志级别（SWARMSCOPE_LOG_LEVEL）
// 和输出格式（SWARMSCOPE_LOG_FORMAT）。
//
// 使用示例:
//
//	var log = logger.Logger("discovery/dht")
//
//	log.Info("节点加入路由表", "host", host, "port", port)
package logger

import (
	"encoding/hex"
	"io"
	"log/slog"
	"sync"
)

var (
	// loggers 缓存各子系统的 Logger
	loggers sync.Map // map[string]*slog.Logger

	// levels 各子系统的级别变量（用于动态调整）
	levels sync.Map // map[string]*slog.LevelVar
)

// Logger 获取指定子系统的 Logger
//
// 同一子系统多次调用返回同一个实例。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := ConfigFromEnv()
	level := new(slog.LevelVar)
	level.Set(cfg.LevelForSubsystem(subsystem))

	l := slog.New(newHandler(subsystem, level, cfg.Format))
	actual, loaded := loggers.LoadOrStore(subsystem, l)
	if !loaded {
		levels.Store(subsystem, level)
	}
	return actual.(*slog.Logger)
}

// SetLevel 动态设置子系统的日志级别
func SetLevel(subsystem string, level slog.Level) {
	if v, ok := levels.Load(subsystem); ok {
		v.(*slog.LevelVar).Set(level)
	}
}

// SetGlobalLevel 设置所有已创建子系统的日志级别
func SetGlobalLevel(level slog.Level) {
	levels.Range(func(_, v any) bool {
		v.(*slog.LevelVar).Set(level)
		return true
	})
}

// SetOutput 设置全局日志输出目标
//
// 已创建的 Logger 同样会重定向到新的 writer。
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}

// Discard 返回一个丢弃所有日志的 Logger
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// ShortKey 截取公钥/节点 ID 的前 8 个十六进制字符用于日志显示
func ShortKey(key []byte) string {
	s := hex.EncodeToString(key)
	if len(s) <= 8 {
		return s
	}
	return s[:8]
}
