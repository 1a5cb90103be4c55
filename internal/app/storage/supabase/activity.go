package supabase

import (
	"context"
	"time"

	"github.com/R3E-Network/framestore/internal/app/domain/analytics"
	"github.com/R3E-Network/framestore/internal/app/domain/notification"
	"github.com/R3E-Network/framestore/internal/app/domain/schedule"
	"github.com/R3E-Network/framestore/internal/app/domain/template"
)

// --- TemplateStore ----------------------------------------------------------

func (s *Store) CreateTemplate(ctx context.Context, t template.Template) (template.Template, error) {
	t.ID = newID(t.ID)
	t.CreatedAt = s.now()
	t.Downloads = 0
	if t.Tags == nil {
		t.Tags = []string{}
	}
	resp, err := s.client.From(tableTemplates).ExecuteInsert(ctx, t)
	return first[template.Template](resp, err, "template", t.ID)
}

func (s *Store) GetTemplate(ctx context.Context, id string) (template.Template, error) {
	resp, err := s.client.From(tableTemplates).Select("*").Eq("id", id).Limit(1).Execute(ctx)
	return first[template.Template](resp, err, "template", id)
}

func (s *Store) ListTemplates(ctx context.Context, filter template.Filter) ([]template.Template, error) {
	q := s.client.From(tableTemplates).Select("*").Eq("is_public", true)
	if filter.Category != "" {
		q = q.Eq("category", filter.Category)
	}
	if filter.FeaturedOnly {
		q = q.Eq("is_featured", true)
	}
	resp, err := q.Order("downloads", false).Order("created_at", true).Execute(ctx)
	return rows[template.Template](resp, err, "templates", filter.Category)
}

func (s *Store) IncrementDownloads(ctx context.Context, id string) (template.Template, error) {
	resp, err := s.client.RPC(ctx, "increment_template_downloads", map[string]string{"p_template_id": id})
	return first[template.Template](resp, err, "template", id)
}

// --- AnalyticsStore ---------------------------------------------------------

func (s *Store) RecordEvent(ctx context.Context, e analytics.Event) (analytics.Event, error) {
	e.ID = newID(e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	resp, err := s.client.From(tableEvents).ExecuteInsert(ctx, e)
	return first[analytics.Event](resp, err, "event for frame", e.FrameID)
}

func (s *Store) ListEvents(ctx context.Context, frameID string, since time.Time) ([]analytics.Event, error) {
	resp, err := s.client.From(tableEvents).Select("*").
		Eq("frame_id", frameID).Gte("created_at", since).
		Order("created_at", true).
		Execute(ctx)
	return rows[analytics.Event](resp, err, "events of frame", frameID)
}

// --- NotificationStore ------------------------------------------------------

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.ID = newID(n.ID)
	n.CreatedAt = s.now()
	n.Read = false
	resp, err := s.client.From(tableNotifications).ExecuteInsert(ctx, n)
	return first[notification.Notification](resp, err, "notification", n.ID)
}

func (s *Store) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	resp, err := s.client.From(tableNotifications).Select("*").Eq("id", id).Limit(1).Execute(ctx)
	return first[notification.Notification](resp, err, "notification", id)
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	q := s.client.From(tableNotifications).Select("*").Eq("user_id", userID)
	if unreadOnly {
		q = q.Eq("read", false)
	}
	resp, err := q.Order("created_at", false).Order("id", false).Execute(ctx)
	return rows[notification.Notification](resp, err, "notifications of user", userID)
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) (notification.Notification, error) {
	resp, err := s.client.From(tableNotifications).Eq("id", id).ExecuteUpdate(ctx, map[string]bool{"read": true})
	return first[notification.Notification](resp, err, "notification", id)
}

// --- ScheduleStore ----------------------------------------------------------

func (s *Store) CreateSchedule(ctx context.Context, sc schedule.Schedule) (schedule.Schedule, error) {
	sc.ID = newID(sc.ID)
	sc.CreatedAt = s.now()
	resp, err := s.client.From(tableSchedules).ExecuteInsert(ctx, sc)
	return first[schedule.Schedule](resp, err, "schedule", sc.ID)
}

func (s *Store) GetSchedule(ctx context.Context, id string) (schedule.Schedule, error) {
	resp, err := s.client.From(tableSchedules).Select("*").Eq("id", id).Limit(1).Execute(ctx)
	return first[schedule.Schedule](resp, err, "schedule", id)
}

func (s *Store) UpdateSchedule(ctx context.Context, sc schedule.Schedule) (schedule.Schedule, error) {
	patch := map[string]any{
		"publish_at":   sc.PublishAt,
		"status":       sc.Status,
		"platform":     sc.Platform,
		"auto_post":    sc.AutoPost,
		"published_at": sc.PublishedAt,
	}
	resp, err := s.client.From(tableSchedules).Eq("id", sc.ID).ExecuteUpdate(ctx, patch)
	return first[schedule.Schedule](resp, err, "schedule", sc.ID)
}

func (s *Store) ListSchedulesByUser(ctx context.Context, userID string) ([]schedule.Schedule, error) {
	resp, err := s.client.From(tableSchedules).Select("*").Eq("user_id", userID).
		Order("publish_at", true).Order("id", true).
		Execute(ctx)
	return rows[schedule.Schedule](resp, err, "schedules of user", userID)
}

func (s *Store) ListDueSchedules(ctx context.Context, now time.Time) ([]schedule.Schedule, error) {
	resp, err := s.client.From(tableSchedules).Select("*").
		Eq("status", schedule.StatusPending).Lte("publish_at", now).
		Order("publish_at", true).Order("id", true).
		Execute(ctx)
	return rows[schedule.Schedule](resp, err, "due schedules", "")
}
