package fabric

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/swarmflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config configures a Fabric.
type Config struct {
	// ChannelBuffer is the mailbox capacity of each registered agent.
	ChannelBuffer int `yaml:"channel_buffer" env:"CHANNEL_BUFFER"`
	// RequestTimeout is used by Request when the caller passes no timeout.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	// RateLimit caps messages per second per sender; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	// RateBurst is the token bucket size used with RateLimit.
	RateBurst int `yaml:"rate_burst" env:"RATE_BURST"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChannelBuffer:  100,
		RequestTimeout: 30 * time.Second,
		RateLimit:      0,
		RateBurst:      10,
	}
}

// Hooks are notified after deliveries and registrations. They run on the
// caller's goroutine after all fabric locks are released.
type Hooks struct {
	// OnMessage fires once per delivered message (once per broadcast).
	OnMessage func(msg *Message)
	// OnRegister fires when a new agent channel is created.
	OnRegister func(agentID string)
}

// Option customizes a Fabric.
type Option func(*Fabric)

// WithHooks installs delivery and registration hooks.
func WithHooks(h Hooks) Option {
	return func(f *Fabric) { f.hooks = h }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(f *Fabric) { f.now = now }
}

// Fabric delivers messages between named agents. Each registered agent owns
// a buffered mailbox; delivery never blocks the sender. Request/response
// calls are matched by correlation id and accept exactly one reply.
type Fabric struct {
	config Config
	hooks  Hooks
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	channels map[string]chan *Message
	closed   bool

	pendingMu sync.Mutex
	pending   map[string]chan *Message

	// limiters are owned by this instance so that independent swarms in one
	// process never share rate state.
	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	sent        atomic.Int64
	broadcasts  atomic.Int64
	delivered   atomic.Int64
	dropped     atomic.Int64
	timeouts    atomic.Int64
	lateReplies atomic.Int64

	closeOnce sync.Once
}

// New creates a Fabric.
func New(config Config, logger *zap.Logger, opts ...Option) *Fabric {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if config.ChannelBuffer <= 0 {
		config.ChannelBuffer = defaults.ChannelBuffer
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.RateBurst <= 0 {
		config.RateBurst = 1
	}

	f := &Fabric{
		config:   config,
		logger:   logger.With(zap.String("component", "fabric")),
		now:      time.Now,
		channels: make(map[string]chan *Message),
		pending:  make(map[string]chan *Message),
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RegisterAgent creates the agent's channel. Registering an existing id is
// a no-op.
func (f *Fabric) RegisterAgent(agentID string) error {
	if agentID == "" {
		return types.NewError(types.ErrInvalidRequest, "agent id is required")
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return types.NewError(types.ErrFabricClosed, "fabric is closed")
	}
	if _, exists := f.channels[agentID]; exists {
		f.mu.Unlock()
		return nil
	}
	f.channels[agentID] = make(chan *Message, f.config.ChannelBuffer)
	f.mu.Unlock()

	f.logger.Debug("agent registered", zap.String("agent_id", agentID))
	if f.hooks.OnRegister != nil {
		f.hooks.OnRegister(agentID)
	}
	return nil
}

// UnregisterAgent removes the agent's channel and closes it so consumers
// observe the end of the stream. Unknown ids are ignored.
func (f *Fabric) UnregisterAgent(agentID string) {
	f.mu.Lock()
	ch, exists := f.channels[agentID]
	if exists {
		delete(f.channels, agentID)
		close(ch)
	}
	f.mu.Unlock()

	f.limiterMu.Lock()
	delete(f.limiters, agentID)
	f.limiterMu.Unlock()

	if exists {
		f.logger.Debug("agent unregistered", zap.String("agent_id", agentID))
	}
}

// IsRegistered reports whether agentID has a channel.
func (f *Fabric) IsRegistered(agentID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.channels[agentID]
	return ok
}

// Agents returns the registered agent ids in sorted order.
func (f *Fabric) Agents() []string {
	f.mu.RLock()
	ids := make([]string, 0, len(f.channels))
	for id := range f.channels {
		ids = append(ids, id)
	}
	f.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// SendTo delivers a fire-and-forget message to one recipient. An
// unregistered recipient fails with RECIPIENT_NOT_FOUND. A full mailbox
// drops the message without failing the send.
func (f *Fabric) SendTo(ctx context.Context, from, to string, kind MessageKind, payload any) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if to == "" || to == BroadcastRecipient {
		return nil, types.NewError(types.ErrInvalidRequest, "recipient id is required")
	}
	if kind == "" {
		kind = KindDirect
	}
	if err := f.allow(from); err != nil {
		return nil, err
	}

	msg := f.newMessage(from, to, kind, payload)
	if err := f.deliver(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Broadcast delivers one message to every registered agent except the
// sender and returns how many mailboxes accepted it. An empty registry is
// not an error.
func (f *Fabric) Broadcast(ctx context.Context, from string, kind MessageKind, payload any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if kind == "" {
		kind = KindBroadcast
	}
	if err := f.allow(from); err != nil {
		return 0, err
	}

	msg := f.newMessage(from, BroadcastRecipient, kind, payload)

	f.mu.RLock()
	if f.closed {
		f.mu.RUnlock()
		return 0, types.NewError(types.ErrFabricClosed, "fabric is closed")
	}
	reached := 0
	for id, ch := range f.channels {
		if id == from {
			continue
		}
		if f.offer(id, ch, msg) {
			reached++
		}
	}
	f.mu.RUnlock()

	f.sent.Add(1)
	f.broadcasts.Add(1)

	f.logger.Debug("broadcast issued",
		zap.String("msg_id", msg.ID),
		zap.String("from", from),
		zap.String("kind", string(kind)),
		zap.Int("recipients", reached),
	)

	if reached > 0 {
		f.notify(msg)
	}
	return reached, nil
}

// Request sends a correlated message and waits for the matching reply.
// When timeout elapses first the call fails with REQUEST_TIMEOUT and any
// later reply is ignored. A non-positive timeout uses the configured default.
func (f *Fabric) Request(ctx context.Context, from, to string, kind MessageKind, payload any, timeout time.Duration) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if to == "" || to == BroadcastRecipient {
		return nil, types.NewError(types.ErrInvalidRequest, "recipient id is required")
	}
	if kind == "" {
		kind = KindRequest
	}
	if timeout <= 0 {
		timeout = f.config.RequestTimeout
	}
	if err := f.allow(from); err != nil {
		return nil, err
	}

	msg := f.newMessage(from, to, kind, payload)
	msg.CorrelationID = uuid.New().String()

	slot := make(chan *Message, 1)
	f.pendingMu.Lock()
	f.pending[msg.CorrelationID] = slot
	f.pendingMu.Unlock()

	if err := f.deliver(msg); err != nil {
		f.takePending(msg.CorrelationID)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-slot:
		return f.settle(reply)
	case <-timer.C:
		if f.takePending(msg.CorrelationID) {
			f.timeouts.Add(1)
			f.logger.Debug("request timed out",
				zap.String("correlation_id", msg.CorrelationID),
				zap.String("to", to),
				zap.Duration("timeout", timeout),
			)
			return nil, types.Errorf(types.ErrRequestTimeout,
				"no reply from %s within %s", to, timeout).WithRetryable(true)
		}
		// 回复已抢先认领，槽位中必然有值
		return f.settle(<-slot)
	case <-ctx.Done():
		if f.takePending(msg.CorrelationID) {
			return nil, ctx.Err()
		}
		return f.settle(<-slot)
	}
}

func (f *Fabric) settle(reply *Message) (*Message, error) {
	if reply == nil {
		return nil, types.NewError(types.ErrFabricClosed, "fabric closed while awaiting reply")
	}
	return reply, nil
}

// Reply answers a request. Only the first reply per correlation id reaches
// the requester; replies to settled or unknown requests are logged and
// dropped without error.
func (f *Fabric) Reply(ctx context.Context, request *Message, from string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if request == nil || request.CorrelationID == "" {
		return types.NewError(types.ErrInvalidRequest, "reply requires a correlated request")
	}
	if err := f.allow(from); err != nil {
		return err
	}

	f.pendingMu.Lock()
	slot, ok := f.pending[request.CorrelationID]
	if ok {
		delete(f.pending, request.CorrelationID)
	}
	f.pendingMu.Unlock()

	if !ok {
		f.lateReplies.Add(1)
		f.logger.Info("ignoring reply for settled request",
			zap.String("correlation_id", request.CorrelationID),
			zap.String("from", from),
		)
		return nil
	}

	resp := f.newMessage(from, request.From, KindResponse, payload)
	resp.CorrelationID = request.CorrelationID
	slot <- resp

	f.sent.Add(1)
	f.delivered.Add(1)
	f.notify(resp)
	return nil
}

// Receive blocks until a message arrives for agentID or ctx is done.
func (f *Fabric) Receive(ctx context.Context, agentID string) (*Message, error) {
	ch, err := f.Messages(agentID)
	if err != nil {
		return nil, err
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, types.Errorf(types.ErrRecipientNotFound, "agent %s was unregistered", agentID)
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Messages returns the receive side of an agent's mailbox.
func (f *Fabric) Messages(agentID string) (<-chan *Message, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ch, ok := f.channels[agentID]
	if !ok {
		return nil, types.Errorf(types.ErrRecipientNotFound, "agent %s is not registered", agentID)
	}
	return ch, nil
}

// Statistics returns fabric counters.
func (f *Fabric) Statistics() Statistics {
	f.mu.RLock()
	registered := len(f.channels)
	f.mu.RUnlock()

	f.pendingMu.Lock()
	pending := len(f.pending)
	f.pendingMu.Unlock()

	return Statistics{
		RegisteredAgents: registered,
		MessagesSent:     f.sent.Load(),
		BroadcastsIssued: f.broadcasts.Load(),
		Delivered:        f.delivered.Load(),
		Dropped:          f.dropped.Load(),
		PendingRequests:  pending,
		RequestTimeouts:  f.timeouts.Load(),
		LateReplies:      f.lateReplies.Load(),
	}
}

// Close closes every mailbox and releases pending requesters.
func (f *Fabric) Close() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		for id, ch := range f.channels {
			close(ch)
			delete(f.channels, id)
		}
		f.mu.Unlock()

		f.pendingMu.Lock()
		for id, slot := range f.pending {
			delete(f.pending, id)
			slot <- nil
		}
		f.pendingMu.Unlock()

		f.logger.Info("fabric closed")
	})
}

// deliver routes a point-to-point message.
func (f *Fabric) deliver(msg *Message) error {
	f.mu.RLock()
	if f.closed {
		f.mu.RUnlock()
		return types.NewError(types.ErrFabricClosed, "fabric is closed")
	}
	ch, ok := f.channels[msg.To]
	if !ok {
		f.mu.RUnlock()
		return types.Errorf(types.ErrRecipientNotFound, "recipient %s is not registered", msg.To)
	}
	accepted := f.offer(msg.To, ch, msg)
	f.mu.RUnlock()

	f.sent.Add(1)
	if accepted {
		f.notify(msg)
	}
	return nil
}

// offer performs a non-blocking send. Callers hold f.mu (read) so the
// channel cannot be closed underneath them.
func (f *Fabric) offer(to string, ch chan *Message, msg *Message) bool {
	select {
	case ch <- msg:
		f.delivered.Add(1)
		return true
	default:
		f.dropped.Add(1)
		f.logger.Warn("mailbox full, message dropped",
			zap.String("to", to),
			zap.String("msg_id", msg.ID),
			zap.String("kind", string(msg.Kind)),
		)
		return false
	}
}

func (f *Fabric) notify(msg *Message) {
	if f.hooks.OnMessage != nil {
		f.hooks.OnMessage(msg)
	}
}

func (f *Fabric) takePending(correlationID string) bool {
	f.pendingMu.Lock()
	defer f.pendingMu.Unlock()
	if _, ok := f.pending[correlationID]; !ok {
		return false
	}
	delete(f.pending, correlationID)
	return true
}

func (f *Fabric) allow(from string) error {
	if f.config.RateLimit <= 0 {
		return nil
	}

	f.limiterMu.Lock()
	l, ok := f.limiters[from]
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.config.RateLimit), f.config.RateBurst)
		f.limiters[from] = l
	}
	f.limiterMu.Unlock()

	if !l.Allow() {
		return types.Errorf(types.ErrRateLimited, "sender %s exceeded %.2f messages/s", from, f.config.RateLimit).
			WithRetryable(true)
	}
	return nil
}

func (f *Fabric) newMessage(from, to string, kind MessageKind, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		Kind:      kind,
		Payload:   payload,
		Timestamp: f.now(),
	}
}
