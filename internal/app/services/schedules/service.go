package schedules

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/framestore/internal/app/domain/notification"
	"github.com/R3E-Network/framestore/internal/app/domain/schedule"
	"github.com/R3E-Network/framestore/internal/app/metrics"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/internal/errors"
	"github.com/R3E-Network/framestore/pkg/logger"
)

// Notifier delivers notifications to users.
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification) (notification.Notification, error)
}

// Service schedules frames for publishing and publishes them when due.
type Service struct {
	frames   storage.FrameStore
	store    storage.ScheduleStore
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

// New constructs a schedule service. notifier is optional.
func New(frames storage.FrameStore, store storage.ScheduleStore, notifier Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("schedules")
	}
	return &Service{frames: frames, store: store, notifier: notifier, log: log, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Schedule queues frameID for publishing at publishAt. Only the frame owner
// may schedule it, and publishAt must be in the future. An empty platform
// defaults to warpcast.
func (s *Service) Schedule(ctx context.Context, userID, frameID string, publishAt time.Time, platform schedule.Platform, autoPost bool) (schedule.Schedule, error) {
	if strings.TrimSpace(userID) == "" {
		return schedule.Schedule{}, errors.Unauthorized("")
	}
	if platform == "" {
		platform = schedule.PlatformWarpcast
	}
	if !platform.Valid() {
		return schedule.Schedule{}, errors.InvalidFormat("platform", "must be warpcast or farcaster")
	}
	if publishAt.IsZero() || !publishAt.After(s.now()) {
		return schedule.Schedule{}, errors.InvalidFormat("publish_at", "must be in the future")
	}

	f, err := s.frames.GetFrame(ctx, frameID)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("get frame: %w", err)
	}
	if f.UserID != userID {
		return schedule.Schedule{}, errors.Forbidden("only the frame owner can schedule it")
	}

	sc, err := s.store.CreateSchedule(ctx, schedule.Schedule{
		FrameID:   frameID,
		UserID:    userID,
		PublishAt: publishAt.UTC(),
		Status:    schedule.StatusPending,
		Platform:  platform,
		AutoPost:  autoPost,
	})
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("create schedule: %w", err)
	}
	s.log.WithField("schedule_id", sc.ID).
		WithField("frame_id", frameID).
		WithField("publish_at", sc.PublishAt).
		Info("frame publish scheduled")
	return sc, nil
}

// Cancel cancels a pending schedule owned by userID.
func (s *Service) Cancel(ctx context.Context, userID, id string) (schedule.Schedule, error) {
	sc, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("get schedule: %w", err)
	}
	if sc.UserID != userID {
		return schedule.Schedule{}, errors.NotFound("schedule", id)
	}
	if sc.Status != schedule.StatusPending {
		return schedule.Schedule{}, errors.Conflict(fmt.Sprintf("schedule is already %s", sc.Status))
	}
	sc.Status = schedule.StatusCancelled
	sc, err = s.store.UpdateSchedule(ctx, sc)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("cancel schedule: %w", err)
	}
	s.log.WithField("schedule_id", id).Info("scheduled publish cancelled")
	return sc, nil
}

// ListByUser returns a user's schedules soonest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]schedule.Schedule, error) {
	list, err := s.store.ListSchedulesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	if list == nil {
		list = []schedule.Schedule{}
	}
	return list, nil
}

// PublishDue publishes every pending schedule due at now and returns how
// many were published. Schedules whose frame has been deleted are
// cancelled. A failure on one schedule does not stop the others.
func (s *Service) PublishDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.ListDueSchedules(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due schedules: %w", err)
	}

	published := 0
	var errs []error
	for _, sc := range due {
		ok, err := s.publish(ctx, sc, now)
		metrics.RecordPublish(ok)
		if err != nil {
			s.log.WithError(err).WithField("schedule_id", sc.ID).Warn("scheduled publish failed")
			errs = append(errs, err)
			continue
		}
		if ok {
			published++
		}
	}
	return published, stderrors.Join(errs...)
}

func (s *Service) publish(ctx context.Context, sc schedule.Schedule, now time.Time) (bool, error) {
	f, err := s.frames.GetFrame(ctx, sc.FrameID)
	if stderrors.Is(err, storage.ErrNotFound) {
		sc.Status = schedule.StatusCancelled
		if _, err := s.store.UpdateSchedule(ctx, sc); err != nil {
			return false, fmt.Errorf("cancel orphaned schedule %s: %w", sc.ID, err)
		}
		s.log.WithField("schedule_id", sc.ID).WithField("frame_id", sc.FrameID).Warn("frame gone, schedule cancelled")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get frame %s: %w", sc.FrameID, err)
	}

	publishedAt := now.UTC()
	sc.Status = schedule.StatusPublished
	sc.PublishedAt = &publishedAt
	if _, err := s.store.UpdateSchedule(ctx, sc); err != nil {
		return false, fmt.Errorf("mark schedule %s published: %w", sc.ID, err)
	}

	s.log.WithField("schedule_id", sc.ID).
		WithField("frame_id", sc.FrameID).
		WithField("platform", sc.Platform).
		WithField("auto_post", sc.AutoPost).
		Info("frame published")

	if s.notifier != nil {
		_, err := s.notifier.Notify(ctx, notification.Notification{
			UserID:  sc.UserID,
			FrameID: sc.FrameID,
			Type:    notification.TypeSystem,
			Title:   "Frame published",
			Message: fmt.Sprintf("Your frame %q was published to %s.", f.Title, sc.Platform),
			Data:    map[string]any{"schedule_id": sc.ID, "platform": string(sc.Platform)},
		})
		if err != nil {
			s.log.WithError(err).WithField("schedule_id", sc.ID).Warn("send publish notification")
		}
	}
	return true, nil
}
