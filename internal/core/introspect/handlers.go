package introspect

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dep2p/go-swarmscope/pkg/types"
)

// ============================================================================
//                              HTTP 处理器
// ============================================================================

// handlePeerInfoList 处理 GET /swarm/peerinfo
//
// host 与 port 均为精确字符串匹配，同时给出时取交集。
func (s *Server) handlePeerInfoList(w http.ResponseWriter, r *http.Request) {
	infos, err := s.src.PeerInfoList()
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	if !q.Has("host") && !q.Has("port") {
		writeJSON(w, infos)
		return
	}

	out := make([]types.PeerInfo, 0, len(infos))
	for _, info := range infos {
		if q.Has("host") && q.Get("host") != info.RemoteHost {
			continue
		}
		if q.Has("port") && q.Get("port") != strconv.Itoa(info.RemotePort) {
			continue
		}
		out = append(out, info)
	}
	writeJSON(w, out)
}

// handlePeerInfo 处理 GET /swarm/peerinfo/{publicKey}
func (s *Server) handlePeerInfo(w http.ResponseWriter, r *http.Request) {
	infos, err := s.src.PeerInfos()
	if err != nil {
		writeError(w, r, err)
		return
	}

	info, ok := infos[mux.Vars(r)["publicKey"]]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, info)
}

// handleDHTNodes 处理 GET /swarm/dhtnode
func (s *Server) handleDHTNodes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.src.DHTNodeList())
}

// handleSummary 处理 GET /swarm/summary
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	m, err := s.src.Metrics()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, m)
}

// handleHealth 处理健康检查
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Status:    "ok",
		Timestamp: time.Now(),
	}
	writeJSON(w, health)
}

// ============================================================================
//                              辅助方法
// ============================================================================

// writeJSON 写入 JSON 响应
func writeJSON(w http.ResponseWriter, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		log.Error("JSON 编码失败", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeError 视图计算失败统一返回 500
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log.Error("自省视图计算失败",
		"path", r.URL.Path,
		"request_id", w.Header().Get(requestIDHeader),
		"error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// ============================================================================
//                              中间件
// ============================================================================

const requestIDHeader = "X-Request-Id"

// statusRecorder 记录响应状态码
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger 为每个请求分配 ID 并记录耗时
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		log.Debug("自省请求",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
