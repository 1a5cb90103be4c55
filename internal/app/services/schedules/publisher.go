package schedules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/framestore/internal/app/system"
	"github.com/R3E-Network/framestore/pkg/logger"
)

var _ system.Service = (*Publisher)(nil)

// Publisher runs PublishDue on a cron schedule.
type Publisher struct {
	service *Service
	log     *logger.Logger
	spec    string
	timeout time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewPublisher creates a lifecycle-managed publisher. spec uses standard
// five-field cron syntax or descriptors such as "@every 1m".
func NewPublisher(service *Service, spec string, log *logger.Logger) (*Publisher, error) {
	if log == nil {
		log = logger.NewDefault("schedule-publisher")
	}
	if spec == "" {
		spec = "@every 1m"
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid publisher schedule %q: %w", spec, err)
	}
	return &Publisher{service: service, log: log, spec: spec, timeout: 30 * time.Second}, nil
}

func (p *Publisher) Name() string { return "schedule-publisher" }

func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(p.spec, func() { p.tick(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule publisher: %w", err)
	}
	c.Start()

	p.cron = c
	p.cancel = cancel
	p.running = true
	p.log.WithField("spec", p.spec).Info("schedule publisher started")
	return nil
}

func (p *Publisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	c, cancel := p.cron, p.cancel
	p.running = false
	p.cron = nil
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	p.log.Info("schedule publisher stopped")
	return nil
}

// RunOnce publishes everything due now. The cron job calls it on every tick.
func (p *Publisher) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.service.PublishDue(ctx, p.service.now())
}

func (p *Publisher) tick(ctx context.Context) {
	n, err := p.RunOnce(ctx)
	if err != nil {
		p.log.WithError(err).Warn("schedule publisher tick failed")
	}
	if n > 0 {
		p.log.WithField("published", n).Info("published scheduled frames")
	}
}
