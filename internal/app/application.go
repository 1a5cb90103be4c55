package app

import (
	"context"
	"fmt"

	"github.com/R3E-Network/framestore/internal/app/services/accounts"
	analyticssvc "github.com/R3E-Network/framestore/internal/app/services/analytics"
	"github.com/R3E-Network/framestore/internal/app/services/embed"
	"github.com/R3E-Network/framestore/internal/app/services/frames"
	"github.com/R3E-Network/framestore/internal/app/services/notifications"
	"github.com/R3E-Network/framestore/internal/app/services/schedules"
	"github.com/R3E-Network/framestore/internal/app/services/templates"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/internal/app/storage/memory"
	"github.com/R3E-Network/framestore/internal/app/system"
	"github.com/R3E-Network/framestore/internal/auth"
	"github.com/R3E-Network/framestore/pkg/logger"
)

// Options configure the application services.
type Options struct {
	// Tokens signs and verifies session tokens. Required.
	Tokens *auth.Tokens
	// EmbedBaseURL is the public origin used in embed snippets.
	EmbedBaseURL string
	// SchedulerSpec is the cron spec for the schedule publisher. Empty
	// disables the publisher.
	SchedulerSpec string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Store  storage.Store
	Tokens *auth.Tokens

	Accounts      *accounts.Service
	Frames        *frames.Service
	Templates     *templates.Service
	Analytics     *analyticssvc.Service
	Notifications *notifications.Service
	Schedules     *schedules.Service
	Embed         *embed.Service
}

// New builds a fully initialised application. A nil store defaults to the
// in-memory implementation.
func New(store storage.Store, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if store == nil {
		store = memory.New()
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("session token manager is required")
	}
	if opts.EmbedBaseURL == "" {
		opts.EmbedBaseURL = "http://localhost:8080"
	}

	manager := system.NewManager()

	notifySvc := notifications.New(store, log.Named("notifications"))
	frameSvc := frames.New(store, store, notifySvc, log.Named("frames"))
	scheduleSvc := schedules.New(store, store, notifySvc, log.Named("schedules"))
	embedSvc, err := embed.New(store, opts.EmbedBaseURL, log.Named("embed"))
	if err != nil {
		return nil, fmt.Errorf("configure embed service: %w", err)
	}

	var services []system.Service
	if opts.SchedulerSpec != "" {
		publisher, err := schedules.NewPublisher(scheduleSvc, opts.SchedulerSpec, log.Named("schedule-publisher"))
		if err != nil {
			return nil, err
		}
		services = append(services, publisher)
	} else {
		log.Warn("scheduler disabled; scheduled frames will not be published")
	}

	for _, svc := range services {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:       manager,
		log:           log,
		Store:         store,
		Tokens:        opts.Tokens,
		Accounts:      accounts.New(store, opts.Tokens, log.Named("accounts")),
		Frames:        frameSvc,
		Templates:     templates.New(store, log.Named("templates")),
		Analytics:     analyticssvc.New(store, store, log.Named("analytics")),
		Notifications: notifySvc,
		Schedules:     scheduleSvc,
		Embed:         embedSvc,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Ping checks the backing store when it exposes a health check.
func (a *Application) Ping(ctx context.Context) error {
	if p, ok := a.Store.(storage.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
