package grpcapi

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StatusSetter receives the outcome of each probe.
type StatusSetter interface {
	SetServing(ok bool)
}

// ProberConfig holds the parameters for NewProber.
type ProberConfig struct {
	// Interval is how often the database is pinged.  Defaults to 10s.
	Interval time.Duration

	// Timeout bounds a single ping.  Defaults to Interval.
	Timeout time.Duration
}

// Prober periodically pings the database and reports the result as the
// server's health.  Only transitions are logged.
type Prober struct {
	pinger   Pinger
	target   StatusSetter
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	healthy *bool
}

// NewProber creates a prober but does not start it.
func NewProber(p Pinger, target StatusSetter, cfg ProberConfig, logger zerolog.Logger) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	return &Prober{
		pinger:   p,
		target:   target,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   logger.With().Str("component", "prober").Logger(),
		done:     make(chan struct{}),
	}
}

// Start probes once immediately, then on every interval until ctx is
// cancelled or Stop is called.
func (p *Prober) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info().Dur("interval", p.interval).Msg("health prober started")
}

// Stop signals the prober to exit and waits for it.  Safe to call more
// than once, and before Start.
func (p *Prober) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel == nil {
			close(p.done)
			return
		}
		p.cancel()
	})
	<-p.done
}

func (p *Prober) loop(ctx context.Context) {
	defer close(p.done)

	p.probe(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

func (p *Prober) probe(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()

	err := p.pinger.PingContext(ctx)
	ok := err == nil
	if !ok && parent.Err() != nil {
		// shutting down; keep the last verdict
		return
	}

	p.target.SetServing(ok)

	if p.healthy != nil && *p.healthy == ok {
		return
	}
	p.healthy = &ok
	if ok {
		p.logger.Info().Msg("database reachable, serving")
	} else {
		p.logger.Warn().Err(err).Msg("database unreachable, not serving")
	}
}
