package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/vigil/internal/metrics"
)

const (
	MinStreamInterval  = time.Second
	MaxStreamInterval  = 60 * time.Second
	defaultTickTimeout = 5 * time.Second
)

var ErrInvalidInterval = errors.New("stream interval out of range")

// TickFunc runs once per interval; its context expires after the tick timeout.
type TickFunc func(ctx context.Context) error

type stream struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StreamManager runs at most one periodic task per key.
type StreamManager struct {
	ctx    context.Context
	cancel context.CancelFunc

	tickTimeout time.Duration
	minInterval time.Duration
	maxInterval time.Duration

	mu      sync.Mutex
	streams map[string]*stream
}

func NewStreamManager(tickTimeout time.Duration) *StreamManager {
	if tickTimeout <= 0 {
		tickTimeout = defaultTickTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &StreamManager{
		ctx:         ctx,
		cancel:      cancel,
		tickTimeout: tickTimeout,
		minInterval: MinStreamInterval,
		maxInterval: MaxStreamInterval,
		streams:     make(map[string]*stream),
	}
}

// StreamKey scopes a stream to one learner's attempt.
func StreamKey(userID, attemptID string) string {
	return userID + ":" + attemptID
}

// Start replaces any running stream for key with a new one. The new stream
// begins ticking once the replaced one has finished; the lock is not held meanwhile.
func (m *StreamManager) Start(key string, interval time.Duration, tick TickFunc) error {
	if interval < m.minInterval || interval > m.maxInterval {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidInterval, interval, m.minInterval, m.maxInterval)
	}

	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return fmt.Errorf("stream manager stopped: %w", m.ctx.Err())
	}
	existing, replacing := m.streams[key]
	ctx, cancel := context.WithCancel(m.ctx)
	s := &stream{cancel: cancel, done: make(chan struct{})}
	m.streams[key] = s
	metrics.ActiveStreams.Inc()
	m.mu.Unlock()

	if replacing {
		existing.cancel()
		<-existing.done
		metrics.ActiveStreams.Dec()
		log.Debug().Str("stream", key).Msg("Replaced running stream")
	}

	go m.run(ctx, key, interval, tick, s.done)
	return nil
}

func (m *StreamManager) run(ctx context.Context, key string, interval time.Duration, tick TickFunc, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			tickCtx, cancel := context.WithTimeout(ctx, m.tickTimeout)
			if err := tick(tickCtx); err != nil {
				log.Warn().Err(err).Str("stream", key).Msg("Stream tick failed")
			}
			cancel()
		}
	}
}

// Stop cancels the stream for key and waits for an in-flight tick to finish.
// It reports whether a stream was running; stopping an absent stream is a no-op.
func (m *StreamManager) Stop(key string) bool {
	m.mu.Lock()
	s, ok := m.streams[key]
	delete(m.streams, key)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.cancel()
	<-s.done
	metrics.ActiveStreams.Dec()
	return true
}

func (m *StreamManager) Active(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.streams[key]
	return ok
}

func (m *StreamManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

// StopAll cancels every stream and rejects further starts.
func (m *StreamManager) StopAll() {
	m.mu.Lock()
	m.cancel()
	streams := m.streams
	m.streams = make(map[string]*stream)
	m.mu.Unlock()

	for _, s := range streams {
		<-s.done
		metrics.ActiveStreams.Dec()
	}
	log.Info().Int("streams", len(streams)).Msg("All metric streams stopped")
}
