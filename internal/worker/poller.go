package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PollerConfig holds configuration for the catch-up poller.
type PollerConfig struct {
	// PollInterval is how often the ledger revision is compared with the
	// last export (default: 5m)
	PollInterval time.Duration
}

// DefaultPollerConfig returns sensible defaults
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{PollInterval: 5 * time.Minute}
}

// CatchUpper runs one reconciliation pass.
type CatchUpper interface {
	CatchUp(ctx context.Context) (bool, error)
}

// Poller periodically re-exports the ledger when a change notification was
// lost, for example when the broker was unreachable at commit time.
type Poller struct {
	target CatchUpper
	config PollerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewPoller(target CatchUpper, config PollerConfig) *Poller {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollerConfig().PollInterval
	}
	return &Poller{target: target, config: config}
}

// Start begins the polling loop. Returns an error if already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("catch-up poller is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Catch-up poller started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Catch-up poller stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Catch-up poller stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the poller is currently running
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	ran, err := p.target.CatchUp(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Catch-up export failed", "error", err)
		return
	}
	if ran {
		slog.DebugContext(ctx, "Catch-up export completed")
	}
}
