package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/R3E-Network/framestore/internal/app/domain/analytics"
	"github.com/R3E-Network/framestore/internal/app/domain/notification"
	"github.com/R3E-Network/framestore/internal/app/domain/schedule"
)

// --- AnalyticsStore ---------------------------------------------------------

const eventColumns = `id, frame_id, event_type, user_agent, ip_address, country, coordinates, metadata, created_at`

type eventRow struct {
	ID          string          `db:"id"`
	FrameID     string          `db:"frame_id"`
	Type        string          `db:"event_type"`
	UserAgent   string          `db:"user_agent"`
	IPAddress   string          `db:"ip_address"`
	Country     string          `db:"country"`
	Coordinates pq.Float64Array `db:"coordinates"`
	Metadata    []byte          `db:"metadata"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r eventRow) toDomain() analytics.Event {
	e := analytics.Event{
		ID:        r.ID,
		FrameID:   r.FrameID,
		Type:      analytics.EventType(r.Type),
		UserAgent: r.UserAgent,
		IPAddress: r.IPAddress,
		Country:   r.Country,
		CreatedAt: r.CreatedAt,
	}
	if len(r.Coordinates) == 2 {
		e.Coordinates = &[2]float64{r.Coordinates[0], r.Coordinates[1]}
	}
	if len(r.Metadata) > 0 {
		_ = json.Unmarshal(r.Metadata, &e.Metadata)
	}
	return e
}

// jsonOrNil encodes v for a nullable JSONB column.
func jsonOrNil(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Store) RecordEvent(ctx context.Context, e analytics.Event) (analytics.Event, error) {
	e.ID = newID(e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	meta, err := jsonOrNil(e.Metadata)
	if err != nil {
		return analytics.Event{}, err
	}
	var coords pq.Float64Array
	if e.Coordinates != nil {
		coords = pq.Float64Array{e.Coordinates[0], e.Coordinates[1]}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analytics_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.FrameID, string(e.Type), e.UserAgent, e.IPAddress, e.Country, coords, meta, e.CreatedAt)
	if err != nil {
		return analytics.Event{}, mapErr("event", e.ID, err)
	}
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context, frameID string, since time.Time) ([]analytics.Event, error) {
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+eventColumns+`
		FROM analytics_events
		WHERE frame_id = $1 AND created_at >= $2
		ORDER BY created_at
	`, frameID, since)
	if err != nil {
		return nil, err
	}
	result := make([]analytics.Event, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

// --- NotificationStore ------------------------------------------------------

const notificationColumns = `id, user_id, frame_id, type, title, message, data, read, created_at`

type notificationRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	FrameID   sql.NullString `db:"frame_id"`
	Type      string         `db:"type"`
	Title     string         `db:"title"`
	Message   string         `db:"message"`
	Data      []byte         `db:"data"`
	Read      bool           `db:"read"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r notificationRow) toDomain() notification.Notification {
	n := notification.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		FrameID:   r.FrameID.String,
		Type:      notification.Type(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		Read:      r.Read,
		CreatedAt: r.CreatedAt,
	}
	if len(r.Data) > 0 {
		_ = json.Unmarshal(r.Data, &n.Data)
	}
	return n
}

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.ID = newID(n.ID)
	n.CreatedAt = s.now()
	data, err := jsonOrNil(n.Data)
	if err != nil {
		return notification.Notification{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, n.ID, n.UserID, nullString(n.FrameID), string(n.Type), n.Title, n.Message, data, n.Read, n.CreatedAt)
	if err != nil {
		return notification.Notification{}, mapErr("notification", n.ID, err)
	}
	return n, nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	var row notificationRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id); err != nil {
		return notification.Notification{}, mapErr("notification", id, err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR read = FALSE)
		ORDER BY created_at DESC, id DESC
	`, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	result := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) (notification.Notification, error) {
	var row notificationRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE notifications SET read = TRUE WHERE id = $1
		RETURNING `+notificationColumns, id)
	if err != nil {
		return notification.Notification{}, mapErr("notification", id, err)
	}
	return row.toDomain(), nil
}

// --- ScheduleStore ----------------------------------------------------------

const scheduleColumns = `id, frame_id, user_id, publish_at, status, platform, auto_post, published_at, created_at`

type scheduleRow struct {
	ID          string       `db:"id"`
	FrameID     string       `db:"frame_id"`
	UserID      string       `db:"user_id"`
	PublishAt   time.Time    `db:"publish_at"`
	Status      string       `db:"status"`
	Platform    string       `db:"platform"`
	AutoPost    bool         `db:"auto_post"`
	PublishedAt sql.NullTime `db:"published_at"`
	CreatedAt   time.Time    `db:"created_at"`
}

func (r scheduleRow) toDomain() schedule.Schedule {
	sc := schedule.Schedule{
		ID:        r.ID,
		FrameID:   r.FrameID,
		UserID:    r.UserID,
		PublishAt: r.PublishAt,
		Status:    schedule.Status(r.Status),
		Platform:  schedule.Platform(r.Platform),
		AutoPost:  r.AutoPost,
		CreatedAt: r.CreatedAt,
	}
	if r.PublishedAt.Valid {
		t := r.PublishedAt.Time
		sc.PublishedAt = &t
	}
	return sc
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *Store) CreateSchedule(ctx context.Context, sc schedule.Schedule) (schedule.Schedule, error) {
	sc.ID = newID(sc.ID)
	sc.CreatedAt = s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_frames (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, sc.ID, sc.FrameID, sc.UserID, sc.PublishAt, string(sc.Status), string(sc.Platform), sc.AutoPost,
		nullTime(sc.PublishedAt), sc.CreatedAt)
	if err != nil {
		return schedule.Schedule{}, mapErr("schedule", sc.ID, err)
	}
	return sc, nil
}

func (s *Store) GetSchedule(ctx context.Context, id string) (schedule.Schedule, error) {
	var row scheduleRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+scheduleColumns+` FROM scheduled_frames WHERE id = $1`, id); err != nil {
		return schedule.Schedule{}, mapErr("schedule", id, err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateSchedule(ctx context.Context, sc schedule.Schedule) (schedule.Schedule, error) {
	var createdAt time.Time
	err := s.db.GetContext(ctx, &createdAt, `
		UPDATE scheduled_frames
		SET publish_at = $2, status = $3, platform = $4, auto_post = $5, published_at = $6
		WHERE id = $1
		RETURNING created_at
	`, sc.ID, sc.PublishAt, string(sc.Status), string(sc.Platform), sc.AutoPost, nullTime(sc.PublishedAt))
	if err != nil {
		return schedule.Schedule{}, mapErr("schedule", sc.ID, err)
	}
	sc.CreatedAt = createdAt
	return sc, nil
}

func (s *Store) ListSchedulesByUser(ctx context.Context, userID string) ([]schedule.Schedule, error) {
	return s.selectSchedules(ctx, `
		SELECT `+scheduleColumns+`
		FROM scheduled_frames
		WHERE user_id = $1
		ORDER BY publish_at, id
	`, userID)
}

func (s *Store) ListDueSchedules(ctx context.Context, now time.Time) ([]schedule.Schedule, error) {
	return s.selectSchedules(ctx, `
		SELECT `+scheduleColumns+`
		FROM scheduled_frames
		WHERE status = 'pending' AND publish_at <= $1
		ORDER BY publish_at, id
	`, now)
}

func (s *Store) selectSchedules(ctx context.Context, query string, args ...any) ([]schedule.Schedule, error) {
	var rows []scheduleRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	result := make([]schedule.Schedule, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}
