package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/dep2p/go-swarmscope/config"
)

// ============================================================================
//                              配置加载（CLI 专用）
// ============================================================================

// topicList 可重复的 -topic 参数
type topicList []string

func (l *topicList) String() string {
	return strings.Join(*l, ",")
}

func (l *topicList) Set(v string) error {
	*l = append(*l, strings.TrimSpace(v))
	return nil
}

// buildConfig 构建节点配置
//
// 优先级（从高到低）：命令行参数 > 环境变量 > 配置文件 > 默认值。
func buildConfig(fs *flag.FlagSet, f *flags) (*config.Config, error) {
	cfg := config.NewConfig()
	if f.configFile != "" {
		var err error
		cfg, err = config.FromFile(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("环境变量错误: %w", err)
	}

	set := visited(fs)
	if set["port"] {
		cfg.DHT.Port = f.port
	}
	if set["introspect-host"] {
		cfg.Introspect.Host = f.introspectHost
	}
	if set["introspect-port"] {
		cfg.Introspect.Port = f.introspectPort
	}
	if set["bootstrap"] {
		cfg.DHT.Bootstrap = config.SplitAndTrim(f.bootstrap, ",")
	}
	if len(f.topics) > 0 {
		cfg.Swarm.Topics = append([]string(nil), f.topics...)
	}
	if set["secret-key"] {
		cfg.Identity.SecretKey = f.secretKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// visited 返回显式设置过的参数
func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}
