package introspect

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-swarmscope/internal/core/metrics"
	"github.com/dep2p/go-swarmscope/internal/util/logger"
	"github.com/dep2p/go-swarmscope/pkg/types"
)

var log = logger.Logger("introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:0"

// shutdownTimeout Stop 未携带截止时间时的关闭超时
const shutdownTimeout = 5 * time.Second

// Source 自省数据源，由 instrumented.Swarm 实现
type Source interface {
	PeerInfoList() ([]types.PeerInfo, error)
	PeerInfos() (map[string]types.PeerInfo, error)
	DHTNodeList() []types.DHTNodeInfo
	Metrics() (types.MetricsSnapshot, error)
}

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:0"
	Addr string

	// ReadTimeout 读超时
	ReadTimeout time.Duration

	// WriteTimeout 写超时
	WriteTimeout time.Duration

	// Gatherer 可选，非 nil 时挂载 /metrics
	Gatherer prometheus.Gatherer
}

// Server swarm 自省 HTTP 服务
type Server struct {
	src Source
	cfg Config

	router *mux.Router

	server   *http.Server
	listener net.Listener

	running bool
	mu      sync.Mutex
}

// New 创建自省服务
func New(src Source, cfg Config) (*Server, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	s := &Server{
		src: src,
		cfg: cfg,
	}
	s.router = s.newRouter()
	return s, nil
}

// newRouter 创建路由
func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger)

	r.HandleFunc("/swarm/peerinfo", s.handlePeerInfoList).Methods(http.MethodGet)
	r.HandleFunc("/swarm/peerinfo/{publicKey}", s.handlePeerInfo).Methods(http.MethodGet)
	r.HandleFunc("/swarm/dhtnode", s.handleDHTNodes).Methods(http.MethodGet)
	r.HandleFunc("/swarm/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	if s.cfg.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.cfg.Gatherer)).Methods(http.MethodGet)
	}
	return r
}

// Handler 返回路由处理器
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动服务
//
// 监听器同步创建，返回时端口已可接受连接。重复调用无副作用。
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBindFailure, s.cfg.Addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("自省服务异常退出", "error", err)
		}
	}()

	s.running = true
	log.Info("自省服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}

	s.running = false
	if err := s.server.Shutdown(ctx); err != nil {
		log.Error("关闭自省服务失败", "error", err)
		_ = s.server.Close()
		return err
	}

	log.Info("自省服务已停止")
	return nil
}

// Running 服务是否在运行
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}
