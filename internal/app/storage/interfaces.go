package storage

import (
	"context"
	"errors"
	"time"

	"github.com/R3E-Network/framestore/internal/app/domain/analytics"
	"github.com/R3E-Network/framestore/internal/app/domain/frame"
	"github.com/R3E-Network/framestore/internal/app/domain/notification"
	"github.com/R3E-Network/framestore/internal/app/domain/schedule"
	"github.com/R3E-Network/framestore/internal/app/domain/template"
	"github.com/R3E-Network/framestore/internal/app/domain/user"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a write collides with an existing record.
	ErrConflict = errors.New("storage: conflict")
)

// UserStore persists wallet users.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByWallet(ctx context.Context, wallet string) (user.User, error)
}

// FrameStore persists frames, their versions and likes.
type FrameStore interface {
	CreateFrame(ctx context.Context, f frame.Frame) (frame.Frame, error)
	UpdateFrame(ctx context.Context, f frame.Frame) (frame.Frame, error)
	GetFrame(ctx context.Context, id string) (frame.Frame, error)
	// ListFrames returns frames newest first.
	ListFrames(ctx context.Context, limit, offset int) ([]frame.Frame, error)
	ListFramesByUser(ctx context.Context, userID string) ([]frame.Frame, error)
	// DeleteFrame removes the frame with its versions and likes.
	DeleteFrame(ctx context.Context, id string) error

	// CreateVersion numbers v after the frame's highest version, parents it
	// on the current version and makes it current.
	CreateVersion(ctx context.Context, v frame.Version) (frame.Version, error)
	GetVersion(ctx context.Context, id string) (frame.Version, error)
	// ListVersions returns versions highest number first.
	ListVersions(ctx context.Context, frameID string) ([]frame.Version, error)
	// SetCurrentVersion marks versionID as the frame's only current version.
	SetCurrentVersion(ctx context.Context, frameID, versionID string) (frame.Version, error)

	// AddLike records a like and returns the new count. ErrConflict if the
	// user already likes the frame.
	AddLike(ctx context.Context, frameID, userID string) (int, error)
	// RemoveLike deletes a like and returns the new count. ErrNotFound if
	// there was none.
	RemoveLike(ctx context.Context, frameID, userID string) (int, error)
	HasLike(ctx context.Context, frameID, userID string) (bool, error)
}

// TemplateStore persists marketplace templates.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t template.Template) (template.Template, error)
	GetTemplate(ctx context.Context, id string) (template.Template, error)
	// ListTemplates returns matching templates by downloads, most first.
	ListTemplates(ctx context.Context, filter template.Filter) ([]template.Template, error)
	IncrementDownloads(ctx context.Context, id string) (template.Template, error)
}

// AnalyticsStore persists frame interaction events.
type AnalyticsStore interface {
	RecordEvent(ctx context.Context, e analytics.Event) (analytics.Event, error)
	ListEvents(ctx context.Context, frameID string, since time.Time) ([]analytics.Event, error)
}

// NotificationStore persists user notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	GetNotification(ctx context.Context, id string) (notification.Notification, error)
	// ListNotifications returns a user's notifications newest first.
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (notification.Notification, error)
}

// ScheduleStore persists scheduled publishes.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error)
	GetSchedule(ctx context.Context, id string) (schedule.Schedule, error)
	UpdateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error)
	// ListSchedulesByUser returns a user's schedules soonest first.
	ListSchedulesByUser(ctx context.Context, userID string) ([]schedule.Schedule, error)
	// ListDueSchedules returns pending schedules whose time is not after now.
	ListDueSchedules(ctx context.Context, now time.Time) ([]schedule.Schedule, error)
}

// Store is every persistence concern a backend provides.
type Store interface {
	UserStore
	FrameStore
	TemplateStore
	AnalyticsStore
	NotificationStore
	ScheduleStore
}

// Pinger is implemented by backends with a reachable dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}
