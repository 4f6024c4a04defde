package websocket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SubscribeBuilder builds a venue-specific subscribe/unsubscribe/resubscribe
// wire message for a set of asset IDs. kind is one of "subscribe_initial"
// (the first IDs added to an empty set), "subscribe", "unsubscribe",
// "resubscribe_all" so venue adapters can match the
// teacher's distinct initial-vs-incremental message shapes.
type SubscribeBuilder func(assetIDs []string, kind string) interface{}

// Manager manages a single WebSocket connection to a venue. It is
// transport-only: decoding of venue-specific payloads happens downstream of
// MessageChan, in the venue adapter that owns this Manager.
type Manager struct {
	url             string
	conn            *websocket.Conn
	logger          *zap.Logger
	reconnectMgr    *ReconnectManager
	config          Config
	messageChan     chan []byte
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	subscribed      map[string]bool
	connected       atomic.Bool
	lastPongTime    atomic.Int64
	connectionStart atomic.Int64
}

// Config holds WebSocket manager configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	// ReconnectTripThreshold and ReconnectCooldown configure the breaker
	// layered on top of backoff; see ReconnectConfig.TripThreshold.
	ReconnectTripThreshold int
	ReconnectCooldown      time.Duration
	MessageBufferSize      int
	Logger                 *zap.Logger
	BuildSubscribe         SubscribeBuilder
}

// New creates a new WebSocket manager.
func New(cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
		TripThreshold:     cfg.ReconnectTripThreshold,
		CooldownPeriod:    cfg.ReconnectCooldown,
	}

	return &Manager{
		url:          cfg.URL,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		config:       cfg,
		messageChan:  make(chan []byte, cfg.MessageBufferSize),
		ctx:          ctx,
		cancel:       cancel,
		subscribed:   make(map[string]bool),
	}
}

// Start starts the WebSocket manager.
func (m *Manager) Start() error {
	m.logger.Info("websocket-manager-starting", zap.String("url", m.url))

	if err := m.connect(m.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()

	return nil
}

// connect establishes a WebSocket connection.
func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: m.config.DialTimeout,
	}

	m.logger.Info("connecting-to-websocket", zap.String("url", m.url))

	conn, _, err := dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		m.lastPongTime.Store(time.Now().Unix())
		return nil
	})

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	now := time.Now()
	m.connected.Store(true)
	m.lastPongTime.Store(now.Unix())
	m.connectionStart.Store(now.Unix())
	ActiveConnections.Set(1)

	m.logger.Info("websocket-connected")

	return nil
}

// Subscribe subscribes to a list of asset IDs, building the wire message via
// the manager's configured SubscribeBuilder. New IDs join the desired set
// before the write and stay in it if the write fails; resubscribeAll
// re-sends the whole set after a reconnect.
func (m *Manager) Subscribe(ctx context.Context, assetIDs []string) error {
	if len(assetIDs) == 0 {
		return nil
	}

	m.mu.Lock()

	newIDs := make([]string, 0, len(assetIDs))
	for _, id := range assetIDs {
		if !m.subscribed[id] {
			newIDs = append(newIDs, id)
			m.subscribed[id] = true
		}
	}

	if len(newIDs) == 0 {
		m.mu.Unlock()
		m.logger.Debug("all-assets-already-subscribed")
		return nil
	}

	kind := "subscribe"
	if len(m.subscribed) == len(newIDs) {
		kind = "subscribe_initial"
	}
	totalSubscribed := len(m.subscribed)
	m.mu.Unlock()

	SubscriptionCount.Set(float64(totalSubscribed))
	if m.conn == nil || m.config.BuildSubscribe == nil {
		return fmt.Errorf("write subscribe message: no connection or subscribe builder")
	}
	err := m.conn.WriteJSON(m.config.BuildSubscribe(newIDs, kind))
	if err != nil {
		return fmt.Errorf("write subscribe message: %w", err)
	}

	m.logger.Info("subscribed-to-assets",
		zap.Int("new-count", len(newIDs)),
		zap.Int("total-count", totalSubscribed))

	return nil
}

// Unsubscribe unsubscribes from a list of asset IDs. The IDs leave the
// desired set before the write and stay out of it if the write fails.
func (m *Manager) Unsubscribe(ctx context.Context, assetIDs []string) (err error) {
	if len(assetIDs) == 0 {
		return nil
	}

	m.mu.Lock()

	toRemove := make([]string, 0, len(assetIDs))
	for _, id := range assetIDs {
		if m.subscribed[id] {
			toRemove = append(toRemove, id)
			delete(m.subscribed, id)
		}
	}

	if len(toRemove) == 0 {
		m.mu.Unlock()
		m.logger.Debug("no-assets-to-unsubscribe")
		return nil
	}

	totalSubscribed := len(m.subscribed)
	m.mu.Unlock()

	SubscriptionCount.Set(float64(totalSubscribed))
	if m.conn == nil || m.config.BuildSubscribe == nil {
		return fmt.Errorf("write unsubscribe message: no connection or subscribe builder")
	}
	err = m.conn.WriteJSON(m.config.BuildSubscribe(toRemove, "unsubscribe"))
	if err != nil {
		return fmt.Errorf("write unsubscribe message: %w", err)
	}

	UnsubscriptionsTotal.Inc()

	m.logger.Info("unsubscribed-from-assets",
		zap.Int("count", len(toRemove)),
		zap.Int("remaining-count", totalSubscribed))

	return nil
}

// readLoop reads raw frames from the WebSocket and forwards them unparsed.
// Venue-specific decoding happens in the adapter that consumes MessageChan.
func (m *Manager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		_, message, err := conn.ReadMessage()
		if err != nil {
			m.logger.Warn("read-error", zap.Error(err))

			startTime := m.connectionStart.Load()
			if startTime > 0 {
				duration := time.Since(time.Unix(startTime, 0)).Seconds()
				ConnectionDuration.Observe(duration)
			}

			m.connected.Store(false)
			ActiveConnections.Set(0)
			return
		}

		if len(message) < 10 {
			m.logger.Debug("websocket-heartbeat-received", zap.Int("bytes", len(message)))
			continue
		}

		MessagesReceivedTotal.WithLabelValues("raw").Inc()

		select {
		case m.messageChan <- message:
		default:
			m.logger.Warn("message-channel-full", zap.Int("bytes", len(message)))
			MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
		}

		MessageLatencySeconds.Observe(time.Since(start).Seconds())
	}
}

// pingLoop sends periodic PING messages.
func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.connected.Load() {
				continue
			}

			m.mu.RLock()
			conn := m.conn
			m.mu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				m.logger.Warn("ping-error", zap.Error(err))
			}
		}
	}
}

// reconnectLoop handles reconnection when the connection drops.
func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		m.logger.Warn("connection-lost-initiating-reconnect")

		err := m.reconnectMgr.Reconnect(m.ctx, m.connect)
		if err != nil {
			if err == context.Canceled {
				return
			}
			m.logger.Error("reconnection-failed", zap.Error(err))
			continue
		}

		err = m.resubscribeAll(m.ctx)
		if err != nil {
			m.logger.Error("resubscribe-failed", zap.Error(err))
			m.connected.Store(false)
			continue
		}

		m.logger.Info("reconnection-complete-restarting-read-loop")

		m.wg.Add(1)
		go m.readLoop()
	}
}

// resubscribeAll resubscribes to all previously subscribed assets.
func (m *Manager) resubscribeAll(ctx context.Context) error {
	m.mu.RLock()
	assetIDs := make([]string, 0, len(m.subscribed))
	for id := range m.subscribed {
		assetIDs = append(assetIDs, id)
	}
	m.mu.RUnlock()

	if len(assetIDs) == 0 {
		return nil
	}

	if m.config.BuildSubscribe == nil {
		return fmt.Errorf("write resubscribe message: no subscribe builder")
	}
	subscribeMsg := m.config.BuildSubscribe(assetIDs, "resubscribe_all")

	m.mu.RLock()
	err := fmt.Errorf("no connection")
	if m.conn != nil {
		err = m.conn.WriteJSON(subscribeMsg)
	}
	m.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("write resubscribe message: %w", err)
	}

	m.logger.Info("resubscribed-to-all-assets", zap.Int("count", len(assetIDs)))

	return nil
}

// MessageChan returns the channel of raw, undecoded frames.
func (m *Manager) MessageChan() <-chan []byte {
	return m.messageChan
}

// Close gracefully closes the WebSocket manager.
func (m *Manager) Close() error {
	m.logger.Info("closing-websocket-manager")

	m.cancel()

	m.mu.RLock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.RUnlock()

	m.wg.Wait()

	close(m.messageChan)

	ActiveConnections.Set(0)

	m.logger.Info("websocket-manager-closed")

	return nil
}
