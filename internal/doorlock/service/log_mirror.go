package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
)

// MirrorConfig holds the parameters for NewLogMirror.
type MirrorConfig struct {
	// QueueSize bounds the number of pending appends.  Defaults to 256.
	QueueSize int

	// AppendTimeout bounds a single append.  Defaults to 5s.
	AppendTimeout time.Duration
}

type mirrorJob struct {
	rec     store.HistoryRecord
	barrier chan struct{} // set for Flush markers; rec is ignored
}

// LogMirror writes history records to a HistoryLog off the request path.
// A single goroutine drains the queue, so lines land in the order the
// records were submitted.  Failures and overflow are logged and dropped;
// the mirror never reports an error back to the state change.
type LogMirror struct {
	log     store.HistoryLog
	queue   chan mirrorJob
	timeout time.Duration
	logger  zerolog.Logger
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewLogMirror creates the mirror and starts its writer goroutine.
func NewLogMirror(l store.HistoryLog, cfg MirrorConfig, logger zerolog.Logger) *LogMirror {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.AppendTimeout <= 0 {
		cfg.AppendTimeout = 5 * time.Second
	}

	m := &LogMirror{
		log:     l,
		queue:   make(chan mirrorJob, cfg.QueueSize),
		timeout: cfg.AppendTimeout,
		logger:  logger.With().Str("component", "log_mirror").Logger(),
		done:    make(chan struct{}),
	}
	go m.loop()
	return m
}

// Submit queues rec for appending and returns immediately.
func (m *LogMirror) Submit(rec store.HistoryRecord) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		m.logger.Warn().Int64("history_id", rec.ID).Msg("history log closed; line dropped")
		return
	}

	select {
	case m.queue <- mirrorJob{rec: rec}:
	default:
		m.logger.Warn().Int64("history_id", rec.ID).Msg("history log queue full; line dropped")
	}
}

// Flush waits until everything submitted before the call has been
// written (or dropped), or ctx expires.
func (m *LogMirror) Flush(ctx context.Context) error {
	barrier := make(chan struct{})

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil
	}
	select {
	case m.queue <- mirrorJob{barrier: barrier}:
	case <-ctx.Done():
		m.mu.RUnlock()
		return ctx.Err()
	}
	m.mu.RUnlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadAll reads the mirrored lines straight from the underlying log.
func (m *LogMirror) ReadAll(ctx context.Context) ([]string, error) {
	return m.log.ReadAll(ctx)
}

// Close stops accepting records, writes what is already queued and waits
// for the writer goroutine to exit.  Safe to call more than once.
func (m *LogMirror) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()
	<-m.done
}

func (m *LogMirror) loop() {
	defer close(m.done)

	for j := range m.queue {
		if j.barrier != nil {
			close(j.barrier)
			continue
		}
		m.append(j.rec)
	}
}

func (m *LogMirror) append(rec store.HistoryRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	if err := m.log.Append(ctx, rec); err != nil {
		m.logger.Warn().Err(err).
			Int64("history_id", rec.ID).
			Str("status", rec.Status.String()).
			Msg("history log append failed")
	}
}
