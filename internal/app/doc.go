// Package app composes the FrameStore services.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── frame/          # Frames, versions and likes
//	│   ├── template/       # Marketplace templates
//	│   └── ...             # users, analytics, notifications, schedules
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # Store interfaces (FrameStore, TemplateStore, etc.)
//	│   ├── memory/         # In-memory implementation for tests and local runs
//	│   ├── postgres/       # PostgreSQL implementation
//	│   ├── supabase/       # PostgREST implementation
//	│   └── cache/          # Redis read-through decorator for frames
//	├── services/           # Business logic, one package per domain
//	├── httpapi/            # HTTP routes and handlers
//	├── runtime/            # Config-driven backend selection and HTTP server
//	├── system/             # Lifecycle manager
//	└── metrics/            # Prometheus collectors
//
// # Dependency Direction
//
//	cmd/framestore/
//	      │
//	      ▼
//	internal/app/runtime ──► internal/app/httpapi
//	      │                         │
//	      └──────────► internal/app ◄┘
//	                        │
//	                        ├──► internal/app/services/*
//	                        └──► internal/app/storage/*
//
// Services depend on storage interfaces only. Handlers depend on services
// only. Backend selection lives in runtime so tests can build an
// Application over the memory store directly.
package app
