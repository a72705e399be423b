package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/swarmflow/api"
	"github.com/BaSui01/swarmflow/swarm/events"
	"github.com/BaSui01/swarmflow/types"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// =============================================================================
// 📡 事件流 Handler (WebSocket)
// =============================================================================

// EventSource 提供事件订阅，*swarm.Coordinator 实现了它
type EventSource interface {
	Subscribe(h events.Handler) func()
}

// StreamConfig 事件流配置
type StreamConfig struct {
	// 每个连接的事件缓冲，写满后丢弃并在恢复时告知客户端
	Buffer int
	// 心跳间隔，0 表示不发送 ping
	PingInterval time.Duration
	// 单条消息写超时
	WriteTimeout time.Duration
	// 允许的跨域 Origin 模式，空表示仅同源
	OriginPatterns []string
}

// DefaultStreamConfig 返回默认事件流配置
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Buffer:       64,
		PingInterval: 30 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// EventStreamHandler 把协调器事件推送给 WebSocket 客户端
type EventStreamHandler struct {
	source EventSource
	config StreamConfig
	logger *zap.Logger

	active    atomic.Int32
	done      chan struct{}
	closeOnce sync.Once
}

// NewEventStreamHandler 创建事件流处理器
func NewEventStreamHandler(source EventSource, config StreamConfig, logger *zap.Logger) *EventStreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Buffer <= 0 {
		config.Buffer = DefaultStreamConfig().Buffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultStreamConfig().WriteTimeout
	}
	return &EventStreamHandler{
		source: source,
		config: config,
		logger: logger.With(zap.String("component", "event_stream")),
		done:   make(chan struct{}),
	}
}

// HandleEvents 处理 GET /v1/events。?kind=a,b 只推送列出的事件类型
func (h *EventStreamHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	kinds, err := parseKinds(r.URL.Query().Get("kind"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	select {
	case <-h.done:
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrInternalError, "event stream is shutting down", h.logger)
		return
	default:
	}

	// 长连接不受服务器 WriteTimeout 限制
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.config.OriginPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	queue := make(chan events.Event, h.config.Buffer)
	var dropped atomic.Int64
	var sink events.Handler = events.ObserverFunc(func(e events.Event) {
		select {
		case queue <- e:
		default:
			dropped.Add(1)
		}
	})
	if len(kinds) > 0 {
		sink = events.Filter(sink, kinds...)
	}
	unsubscribe := h.source.Subscribe(sink)
	defer unsubscribe()

	h.active.Add(1)
	defer h.active.Add(-1)
	h.logger.Debug("event stream opened",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Int("kinds", len(kinds)),
	)

	// 客户端不发送数据，CloseRead 负责处理控制帧并在断开时取消 ctx
	ctx := conn.CloseRead(r.Context())

	var ping <-chan time.Time
	if h.config.PingInterval > 0 {
		ticker := time.NewTicker(h.config.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-ping:
			if err := h.withTimeout(ctx, conn.Ping); err != nil {
				return
			}
		case e := <-queue:
			if n := dropped.Swap(0); n > 0 {
				notice, _ := json.Marshal(api.StreamDropped{Kind: api.StreamDroppedKind, Dropped: n})
				if err := h.write(ctx, conn, notice); err != nil {
					return
				}
			}
			data, err := events.Marshal(e)
			if err != nil {
				h.logger.Error("marshal event", zap.String("kind", string(e.Kind())), zap.Error(err))
				continue
			}
			if err := h.write(ctx, conn, data); err != nil {
				return
			}
		}
	}
}

// Close 通知所有事件流退出，可重复调用
func (h *EventStreamHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ActiveStreams 返回当前连接数
func (h *EventStreamHandler) ActiveStreams() int {
	return int(h.active.Load())
}

func (h *EventStreamHandler) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	return h.withTimeout(ctx, func(ctx context.Context) error {
		return conn.Write(ctx, websocket.MessageText, data)
	})
}

func (h *EventStreamHandler) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, h.config.WriteTimeout)
	defer cancel()
	err := fn(ctx)
	if err != nil {
		h.logger.Debug("event stream write failed", zap.Error(err))
	}
	return err
}

func parseKinds(raw string) ([]events.Kind, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var kinds []events.Kind
	for _, part := range strings.Split(raw, ",") {
		k := events.Kind(strings.TrimSpace(part))
		if k == "" {
			continue
		}
		if !k.Valid() {
			return nil, types.Errorf(types.ErrInvalidRequest, "unknown event kind %q", k)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
