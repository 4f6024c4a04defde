package websocket

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ReconnectConfig holds the configuration for exponential backoff reconnection.
type ReconnectConfig struct {
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterPercent     float64 // 0.2 = 20%

	// TripThreshold is the number of consecutive dial failures that trips
	// the breaker open. 0 disables the breaker: Reconnect then behaves as
	// plain exponential backoff (still capped at MaxDelay) with no
	// cooldown, matching venues whose connection
	// failures are transient enough that a cooldown would only add
	// latency to catching a live orderbook back up.
	TripThreshold int

	// CooldownPeriod is how long the breaker stays open, on top of the
	// normal backoff delay, once TripThreshold consecutive failures have
	// been observed.
	CooldownPeriod time.Duration
}

// ReconnectManager handles exponential backoff reconnection with jitter,
// and layers a circuit breaker on top of it: once TripThreshold
// consecutive dial failures are observed, the manager holds off further
// attempts for CooldownPeriod rather than hammering a venue that is
// visibly down. The breaker is a trip/reset state machine gated on
// consecutive dial failures; a successful reconnect resets it.
type ReconnectManager struct {
	config              ReconnectConfig
	logger              *zap.Logger
	currentBackoff      time.Duration
	consecutiveFailures int
	breakerOpen         atomic.Bool
	mu                  sync.Mutex
}

// NewReconnectManager creates a new reconnection manager with the specified config.
func NewReconnectManager(cfg ReconnectConfig, logger *zap.Logger) *ReconnectManager {
	return &ReconnectManager{
		config:         cfg,
		logger:         logger,
		currentBackoff: cfg.InitialDelay,
	}
}

// Reconnect attempts to reconnect using the provided connect function with exponential backoff.
func (rm *ReconnectManager) Reconnect(ctx context.Context, connectFunc func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Get current backoff duration
		backoff := rm.nextBackoff()
		if rm.breakerOpen.Load() {
			backoff += rm.config.CooldownPeriod
		}

		rm.logger.Info("attempting-reconnection",
			zap.Duration("backoff", backoff))

		ReconnectAttemptsTotal.Inc()

		// Wait for backoff duration or context cancellation
		select {
		case <-time.After(backoff):
			// Continue to connection attempt
		case <-ctx.Done():
			return ctx.Err()
		}

		// Attempt connection
		err := connectFunc(ctx)
		if err == nil {
			// Success - reset backoff and close the breaker
			rm.Reset()
			rm.logger.Info("reconnection-successful")
			return nil
		}

		// Connection failed
		rm.logger.Warn("reconnection-failed", zap.Error(err))
		ReconnectFailuresTotal.Inc()
		rm.recordFailure()

		// Increment backoff for next attempt
		rm.incrementBackoff()
	}
}

// Reset resets the backoff to the initial delay and closes the breaker.
func (rm *ReconnectManager) Reset() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.currentBackoff = rm.config.InitialDelay
	rm.consecutiveFailures = 0
	if rm.breakerOpen.CompareAndSwap(true, false) {
		ReconnectBreakerOpen.Set(0)
		rm.logger.Info("reconnect-breaker-closed")
	}
}

// recordFailure counts a dial failure towards TripThreshold and trips the
// breaker open once it is reached. A disabled threshold (<= 0) is a no-op,
// so callers that never configure it see no change in behavior.
func (rm *ReconnectManager) recordFailure() {
	if rm.config.TripThreshold <= 0 {
		return
	}

	rm.mu.Lock()
	rm.consecutiveFailures++
	tripped := rm.consecutiveFailures >= rm.config.TripThreshold
	rm.mu.Unlock()

	if tripped && rm.breakerOpen.CompareAndSwap(false, true) {
		ReconnectBreakerOpen.Set(1)
		ReconnectBreakerTripsTotal.Inc()
		rm.logger.Warn("reconnect-breaker-open",
			zap.Int("consecutive_failures", rm.consecutiveFailures),
			zap.Duration("cooldown", rm.config.CooldownPeriod))
	}
}

// nextBackoff returns the current backoff duration with jitter applied.
func (rm *ReconnectManager) nextBackoff() time.Duration {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	// Apply jitter: backoff * (1.0 + random(0, jitterPercent))
	jitter := rand.Float64() * rm.config.JitterPercent
	backoffFloat := float64(rm.currentBackoff) * (1.0 + jitter)

	return time.Duration(backoffFloat)
}

// incrementBackoff increases the backoff duration by the multiplier.
func (rm *ReconnectManager) incrementBackoff() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	// Apply backoff multiplier
	newBackoff := time.Duration(float64(rm.currentBackoff) * rm.config.BackoffMultiplier)

	// Cap at max delay
	if newBackoff > rm.config.MaxDelay {
		rm.currentBackoff = rm.config.MaxDelay
	} else {
		rm.currentBackoff = newBackoff
	}
}
