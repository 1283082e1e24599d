// Package main 提供 swarmscope 命令行入口
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dep2p/go-swarmscope"
	"github.com/dep2p/go-swarmscope/internal/core/instrumented"
	"github.com/dep2p/go-swarmscope/internal/util/logger"
)

var log = logger.Logger("cmd/swarmscope")

// flags 命令行参数
type flags struct {
	configFile     string
	port           int
	introspectHost string
	introspectPort int
	bootstrap      string
	topics         topicList
	secretKey      string
	statusInterval time.Duration
	quiet          bool
	fxEvents       bool
	showVersion    bool
}

func newFlagSet(out io.Writer) (*flag.FlagSet, *flags) {
	f := &flags{}
	fs := flag.NewFlagSet("swarmscope", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVar(&f.configFile, "config", "", "配置文件路径（.json / .yaml）")
	fs.IntVar(&f.port, "port", 0, "DHT 端口，swarm TCP 监听复用该端口（0 = 随机端口）")
	fs.StringVar(&f.introspectHost, "introspect-host", "127.0.0.1", "自省服务监听地址")
	fs.IntVar(&f.introspectPort, "introspect-port", 0, "自省服务端口（0 = 随机端口）")
	fs.StringVar(&f.bootstrap, "bootstrap", "", "引导节点，逗号分隔的 host:port")
	fs.Var(&f.topics, "topic", "加入的主题（32 字节十六进制），可重复")
	fs.StringVar(&f.secretKey, "secret-key", "", "十六进制密钥种子")
	fs.DurationVar(&f.statusInterval, "status-interval", 5*time.Second, "状态日志间隔")
	fs.BoolVar(&f.quiet, "quiet", false, "只输出警告和错误")
	fs.BoolVar(&f.fxEvents, "fx-events", false, "输出 Fx 装配事件")
	fs.BoolVar(&f.showVersion, "version", false, "显示版本信息")
	return fs, f
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs, f := newFlagSet(os.Stderr)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	if f.showVersion {
		fmt.Println(swarmscope.VersionInfo())
		return nil
	}

	if f.quiet {
		logger.SetGlobalLevel(slog.LevelWarn)
	}

	cfg, err := buildConfig(fs, f)
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	var opts []swarmscope.Option
	if f.fxEvents {
		zl, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = zl.Sync() }()
		opts = append(opts, swarmscope.WithFxLogger(zl))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("启动 swarmscope 节点", "version", swarmscope.Version, "commit", swarmscope.GitCommit)

	node, err := swarmscope.Start(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	if addr := node.IntrospectAddr(); addr != "" {
		log.Info("自省服务", "url", "http://"+addr+"/swarm/summary")
	}

	if f.statusInterval > 0 {
		go statusLoop(ctx, node.Instrumented(), f.statusInterval)
	}

	<-ctx.Done()
	log.Info("正在关闭节点")
	return nil
}

// statusLoop 周期输出节点状态
func statusLoop(ctx context.Context, s *instrumented.Swarm, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logStatus(s)
		}
	}
}

// logStatus 只使用统计包装的只读接口
func logStatus(s *instrumented.Swarm) {
	log.Info("节点状态",
		"addr", fmt.Sprintf("%s:%d", s.OwnHost(), s.OwnPort()),
		"publicKey", logger.ShortKey(s.PublicKey()),
		"connections", len(s.Connections()),
		"opened", s.ConnectionsOpened(),
		"closed", s.ConnectionsClosed())
}
