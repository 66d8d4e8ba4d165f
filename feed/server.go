package feed

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hft-sim-go/sim"
)

// StatusProvider 提供状态快照，由 sim.Engine 实现。
type StatusProvider interface {
	Status() sim.Status
}

// Server 行情推送服务：HTTP 快照查询 + websocket 流。
type Server struct {
	provider StatusProvider
	pub      *Publisher
	upgrader websocket.Upgrader
	log      *zap.Logger
}

type outboundMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewServer 创建行情服务。logger 可为 nil。
func NewServer(provider StatusProvider, pub *Publisher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		provider: provider,
		pub:      pub,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:      logger,
	}
}

// Routes 返回完整路由。
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws/status", s.handleStatusStream)
	mux.HandleFunc("/ws/trades", s.handleTradeStream)
	return mux
}

// Serve 在 addr 上启动服务，调用方负责 Shutdown。
func (s *Server) Serve(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: s.Routes()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("feed server stopped", zap.Error(err))
		}
	}()
	return srv
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.provider.Status())
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.pub.SubscribeStatus(32)
	defer s.pub.UnsubscribeStatus(sub)

	clientGone := readPump(conn)

	// 先推一帧当前快照，订阅者无须等下一个 tick
	if err := conn.WriteJSON(outboundMessage{Type: "status", Data: s.provider.Status()}); err != nil {
		return
	}

	for {
		select {
		case st, ok := <-sub.C():
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "status", Data: st}); err != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}

func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.pub.SubscribeTrades(32)
	defer s.pub.UnsubscribeTrades(sub)

	clientGone := readPump(conn)

	for {
		select {
		case tr, ok := <-sub.C():
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "trade", Data: tr}); err != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}

// readPump 持续读取连接以感知断连。客户端不发业务数据，
// 读到的帧全部丢弃；返回的通道在连接断开时关闭。
func readPump(conn *websocket.Conn) <-chan struct{} {
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return gone
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
